package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/nexclub/nexclub/controllers/helpers"
	"github.com/nexclub/nexclub/distribution"
	"github.com/nexclub/nexclub/wallet"
	"github.com/nexclub/nexclub/withdrawal"
)

func RenderDistributionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, distribution.ErrNoPendingPurchase):
		return c.Status(422).JSON(helpers.Errors{Errors: []string{"payment.no_pending_purchase"}})
	case errors.Is(err, distribution.ErrPurchaseOutstanding):
		return c.Status(422).JSON(helpers.Errors{Errors: []string{"payment.purchase_outstanding"}})
	case errors.Is(err, distribution.ErrTierNotPurchasable):
		return c.Status(422).JSON(helpers.Errors{Errors: []string{"payment.tier_not_purchasable"}})
	case errors.Is(err, distribution.ErrMissingAdmin):
		return c.Status(500).JSON(helpers.Errors{Errors: []string{"payment.admin_account_missing"}})
	default:
		return c.Status(500).JSON(helpers.Errors{Errors: []string{"server.internal_error"}})
	}
}

func RenderWithdrawalError(c *fiber.Ctx, err error, canManual bool) error {
	switch {
	case errors.Is(err, withdrawal.ErrBelowMinimum):
		return c.Status(422).JSON(helpers.Errors{Errors: []string{"withdrawal.below_minimum"}})
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return c.Status(422).JSON(helpers.Errors{Errors: []string{"withdrawal.insufficient_funds"}})
	case errors.Is(err, wallet.ErrInvalidAmount):
		return c.Status(422).JSON(helpers.Errors{Errors: []string{"withdrawal.invalid_amount"}})
	case errors.Is(err, withdrawal.ErrAlreadyProcessed):
		return c.Status(422).JSON(helpers.Errors{Errors: []string{"withdrawal.already_processed"}})
	case errors.Is(err, withdrawal.ErrNotWithdrawal):
		return c.Status(422).JSON(helpers.Errors{Errors: []string{"withdrawal.not_found"}})
	case errors.Is(err, withdrawal.ErrMissingUPI):
		return c.Status(422).JSON(fiber.Map{
			"errors":     []string{"withdrawal.missing_upi"},
			"can_manual": canManual,
		})
	case errors.Is(err, withdrawal.ErrPayoutFailed):
		return c.Status(422).JSON(fiber.Map{
			"errors":     []string{"withdrawal.payout_failed"},
			"can_manual": canManual,
		})
	default:
		return c.Status(500).JSON(helpers.Errors{Errors: []string{"server.internal_error"}})
	}
}
