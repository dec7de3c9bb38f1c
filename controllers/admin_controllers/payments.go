package admin_controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexclub/nexclub/audit"
	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/controllers"
	"github.com/nexclub/nexclub/controllers/auth"
	"github.com/nexclub/nexclub/controllers/helpers"
	"github.com/nexclub/nexclub/models"
)

// ApprovePayment is the manual confirmation path: the admin verified the
// payment out-of-band and triggers the distribution. The decision is
// audited.
func ApprovePayment(c *fiber.Ctx) error {
	CurrentAdmin := auth.GetCurrentAdmin(c)
	if CurrentAdmin == nil {
		return nil
	}

	paymentRef := c.Params("payment_ref")
	if len(paymentRef) == 0 {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"payment.missing_reference"},
		})
	}

	var member *models.Member
	if err := config.DataBase.First(&member, "pending_payment_ref = ?", paymentRef).Error; err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"payment.unknown_reference"},
		})
	}

	actor := &audit.Actor{
		ID:    CurrentAdmin.ID,
		Email: CurrentAdmin.Email,
		IP:    c.IP(),
	}

	summary, err := controllers.Engine.Distribute(c.Context(), member.ID, paymentRef, actor)
	if err != nil {
		return controllers.RenderDistributionError(c, err)
	}

	return c.Status(200).JSON(summary)
}
