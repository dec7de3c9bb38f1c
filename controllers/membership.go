package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexclub/nexclub/controllers/auth"
	"github.com/nexclub/nexclub/controllers/helpers"
	"github.com/nexclub/nexclub/controllers/queries"
	"github.com/nexclub/nexclub/types"
)

// PurchaseMembership opens a membership order: the member gets a payment
// reference to settle with the gateway, distribution happens on confirmation.
func PurchaseMembership(c *fiber.Ctx) error {
	CurrentUser := auth.GetCurrentUser(c)
	if CurrentUser == nil {
		return nil
	}

	errors := new(helpers.Errors)
	params := new(queries.PurchaseParams)

	if err := c.BodyParser(params); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(params, errors)
	if errors.Size() > 0 {
		return c.Status(422).JSON(errors)
	}

	tier, ok := types.ParseTier(params.Tier)
	if !ok || tier == types.TierNone {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"membership.unknown_tier"},
		})
	}

	paymentRef, err := Engine.InitiatePurchase(c.Context(), CurrentUser.ID, tier)
	if err != nil {
		return RenderDistributionError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"payment_ref": paymentRef,
		"tier":        tier,
	})
}

// GetReferralOverview reports the caller's position in the referral graph.
func GetReferralOverview(c *fiber.Ctx) error {
	CurrentUser := auth.GetCurrentUser(c)
	if CurrentUser == nil {
		return nil
	}

	downline, err := Resolver.Downline(c.Context(), CurrentUser.ID, 100)
	if err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.internal_error"},
		})
	}

	referred := make([]fiber.Map, 0, len(downline))
	for _, m := range downline {
		referred = append(referred, fiber.Map{
			"uid":    m.UID,
			"tier":   m.Tier,
			"active": m.Active,
		})
	}

	return c.Status(200).JSON(fiber.Map{
		"direct_referrals":   CurrentUser.DirectReferrals,
		"indirect_referrals": CurrentUser.IndirectReferrals,
		"referred":           referred,
	})
}
