package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/controllers/helpers"
	"github.com/nexclub/nexclub/controllers/queries"
	"github.com/nexclub/nexclub/gateway"
	"github.com/nexclub/nexclub/models"
)

func GetTimestamp(c *fiber.Ctx) error {
	return c.Status(200).JSON(time.Now().Unix())
}

// Signup registers a member, optionally linked to a referrer. The referrer
// link is set exactly once here and never mutated afterwards.
func Signup(c *fiber.Ctx) error {
	errors := new(helpers.Errors)
	params := new(queries.SignupParams)

	if err := c.BodyParser(params); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(params, errors)
	if errors.Size() > 0 {
		return c.Status(422).JSON(errors)
	}

	member := &models.Member{
		UID:   "NX" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10]),
		Email: params.Email,
		Role:  models.RoleMember,
	}

	if err := config.DataBase.Create(member).Error; err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"signup.email_taken"},
		})
	}

	if len(params.ReferrerUID) > 0 {
		var referrer *models.Member
		if err := config.DataBase.First(&referrer, "uid = ?", params.ReferrerUID).Error; err != nil {
			return c.Status(422).JSON(helpers.Errors{
				Errors: []string{"signup.referrer_not_found"},
			})
		}

		if err := Resolver.Assign(c.Context(), member.ID, referrer.ID); err != nil {
			config.Logger.Errorf("Failed to assign referrer for member %d: %v", member.ID, err)

			return c.Status(422).JSON(helpers.Errors{
				Errors: []string{"signup.invalid_referrer"},
			})
		}
	}

	return c.Status(201).JSON(member.ToJSON())
}

// PaymentCallback is hit by the payment gateway once an order settles. The
// gateway verdict only gates the distribution, it never sets amounts.
func PaymentCallback(c *fiber.Ctx) error {
	errors := new(helpers.Errors)
	params := new(queries.CallbackParams)

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
	if err := config.DataBase.First(&member, "pending_payment_ref = ?", params.PaymentRef).Error; err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"payment.unknown_reference"},
		})
	}

	status, err := Gateway.VerifyPaymentStatus(c.Context(), params.PaymentRef)
	if err != nil {
		config.Logger.Errorf("Failed to verify payment %s: %v", params.PaymentRef, err)

		return c.Status(502).JSON(helpers.Errors{
			Errors: []string{"payment.gateway_unavailable"},
		})
	}

	if status != gateway.StatusPaid {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"payment.not_paid"},
		})
	}

	summary, err := Engine.Distribute(c.Context(), member.ID, params.PaymentRef, nil)
	if err != nil {
		return RenderDistributionError(c, err)
	}

	return c.Status(200).JSON(summary)
}
