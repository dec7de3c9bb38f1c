package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/controllers/auth"
	"github.com/nexclub/nexclub/controllers/helpers"
	"github.com/nexclub/nexclub/controllers/queries"
	"github.com/nexclub/nexclub/models"
	"github.com/nexclub/nexclub/types"
)

// CreateWithdrawal holds the requested amount immediately; the request stays
// pending until an admin resolves it.
func CreateWithdrawal(c *fiber.Ctx) error {
	CurrentUser := auth.GetCurrentUser(c)
	if CurrentUser == nil {
		return nil
	}

	errors := new(helpers.Errors)
	params := new(queries.WithdrawalParams)

	if err := c.BodyParser(params); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(params, errors)
	if errors.Size() > 0 {
		return c.Status(422).JSON(errors)
	}

	amount, err := decimal.NewFromString(params.Amount)
	if err != nil {
		return c.Status(422).JSON(helpers.Errors{
			Errors: []string{"withdrawal.invalid_amount"},
		})
	}

	txn, err := Workflow.Request(c.Context(), CurrentUser.ID, amount)
	if err != nil {
		return RenderWithdrawalError(c, err, false)
	}

	return c.Status(201).JSON(txn.ToJSON())
}

func GetWithdrawals(c *fiber.Ctx) error {
	CurrentUser := auth.GetCurrentUser(c)
	if CurrentUser == nil {
		return nil
	}

	var withdrawals []*models.Transaction
	config.DataBase.
		Where("member_id = ? AND kind = ?", CurrentUser.ID, types.KindWithdrawal).
		Order("id desc").
		Limit(100).
		Find(&withdrawals)

	payload := make([]models.TransactionJSON, 0, len(withdrawals))
	for _, txn := range withdrawals {
		payload = append(payload, txn.ToJSON())
	}

	return c.Status(200).JSON(payload)
}
