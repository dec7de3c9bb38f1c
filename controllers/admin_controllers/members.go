package admin_controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nexclub/nexclub/audit"
	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/controllers"
	"github.com/nexclub/nexclub/controllers/auth"
	"github.com/nexclub/nexclub/controllers/helpers"
	"github.com/nexclub/nexclub/controllers/queries"
	"github.com/nexclub/nexclub/models"
)

// SetMemberActivity toggles the activity flag that gates community-pool
// eligibility. The daily sweep picks up deactivated members.
func SetMemberActivity(c *fiber.Ctx) error {
	CurrentAdmin := auth.GetCurrentAdmin(c)
	if CurrentAdmin == nil {
		return nil
	}

	uid := c.Params("uid")

	errors := new(helpers.Errors)
	params := new(queries.ActivityParams)

	if err := c.BodyParser(params); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(params, errors)
	if errors.Size() > 0 {
		return c.Status(422).JSON(errors)
	}

	var member *models.Member
	if err := config.DataBase.First(&member, "uid = ?", uid).Error; err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"member.not_found"},
		})
	}

	err := config.DataBase.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(member).Update("active", params.Active).Error; err != nil {
			return err
		}

		actor := audit.Actor{ID: CurrentAdmin.ID, Email: CurrentAdmin.Email, IP: c.IP()}
		details := "set active=" + strconv.FormatBool(params.Active) + " for " + member.UID

		return controllers.Auditor.Record(tx, actor, "member.activity", member.ID, details)
	})
	if err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.internal_error"},
		})
	}

	return c.Status(200).JSON(member.ToJSON())
}
