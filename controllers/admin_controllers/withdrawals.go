package admin_controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nexclub/nexclub/audit"
	"github.com/nexclub/nexclub/controllers"
	"github.com/nexclub/nexclub/controllers/auth"
	"github.com/nexclub/nexclub/controllers/helpers"
	"github.com/nexclub/nexclub/controllers/queries"
	"github.com/nexclub/nexclub/types"
)

// ResolveWithdrawal settles one pending withdrawal request: approve with
// automatic or manual payout, or reject with a refund.
func ResolveWithdrawal(c *fiber.Ctx) error {
	CurrentAdmin := auth.GetCurrentAdmin(c)
	if CurrentAdmin == nil {
		return nil
	}

	txnID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"withdrawal.invalid_id"},
		})
	}

	errors := new(helpers.Errors)
	params := new(queries.ResolveParams)

	if err := c.BodyParser(params); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(params, errors)
	if errors.Size() > 0 {
		return c.Status(422).JSON(errors)
	}

	mode := params.Mode
	if len(mode) == 0 {
		mode = types.PayoutManual
	}

	actor := audit.Actor{
		ID:    CurrentAdmin.ID,
		Email: CurrentAdmin.Email,
		IP:    c.IP(),
	}

	resolution, err := controllers.Workflow.Resolve(c.Context(), txnID, params.Decision, params.Note, mode, actor)
	if err != nil {
		canManual := resolution != nil && resolution.CanManual
		return controllers.RenderWithdrawalError(c, err, canManual)
	}

	return c.Status(200).JSON(resolution)
}
