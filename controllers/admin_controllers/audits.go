package admin_controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nexclub/nexclub/controllers"
	"github.com/nexclub/nexclub/controllers/auth"
	"github.com/nexclub/nexclub/controllers/helpers"
	"github.com/nexclub/nexclub/controllers/queries"
	"github.com/nexclub/nexclub/models"
)

// GetAuditEntries filters the audit log by actor, target or time range.
func GetAuditEntries(c *fiber.Ctx) error {
	CurrentAdmin := auth.GetCurrentAdmin(c)
	if CurrentAdmin == nil {
		return nil
	}

	errors := new(helpers.Errors)
	params := new(queries.AuditQueries)

	if err := c.QueryParser(params); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_query"},
		})
	}

	helpers.Vaildate(params, errors)
	if errors.Size() > 0 {
		return c.Status(422).JSON(errors)
	}

	if params.Limit == 0 {
		params.Limit = 100
	}

	var entries []*models.AuditEntry
	var err error

	switch {
	case params.ActorID > 0:
		entries, err = controllers.Auditor.ByActor(params.ActorID, params.Limit)
	case params.TargetID > 0:
		entries, err = controllers.Auditor.ByTarget(params.TargetID, params.Limit)
	default:
		from := time.Unix(params.TimeFrom, 0)
		to := time.Unix(params.TimeTo, 0)
		if params.TimeTo == 0 {
			to = time.Now()
		}
		entries, err = controllers.Auditor.ByRange(from, to, params.Limit)
	}

	if err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.internal_error"},
		})
	}

	return c.Status(200).JSON(entries)
}
