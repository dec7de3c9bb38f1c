package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/controllers/auth"
	"github.com/nexclub/nexclub/controllers/helpers"
	"github.com/nexclub/nexclub/controllers/queries"
	"github.com/nexclub/nexclub/models"
)

func GetWallet(c *fiber.Ctx) error {
	CurrentUser := auth.GetCurrentUser(c)
	if CurrentUser == nil {
		return nil
	}

	return c.Status(200).JSON(CurrentUser.ToJSON())
}

func GetTransactions(c *fiber.Ctx) error {
	CurrentUser := auth.GetCurrentUser(c)
	if CurrentUser == nil {
		return nil
	}

	errors := new(helpers.Errors)
	params := new(queries.TransactionQueries)

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

	if params.Page == 0 {
		params.Page = 1
	}

	tx := config.DataBase.Order("id desc").
		Offset(params.Page*params.Limit - params.Limit).
		Limit(params.Limit).
		Where("member_id = ?", CurrentUser.ID)

	if len(params.Kind) > 0 {
		tx = tx.Where("kind = ?", params.Kind)
	}

	var transactions []*models.Transaction
	tx.Find(&transactions)

	payload := make([]models.TransactionJSON, 0, len(transactions))
	for _, txn := range transactions {
		payload = append(payload, txn.ToJSON())
	}

	c.Response().Header.Add("page", strconv.FormatInt(int64(params.Page), 10))
	c.Response().Header.Add("per-page", strconv.FormatInt(int64(len(transactions)), 10))

	return c.Status(200).JSON(payload)
}
