package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexclub/nexclub/controllers"
	"github.com/nexclub/nexclub/controllers/admin_controllers"
)

func SetupRouter() *fiber.App {
	app := fiber.New()

	app.Get("/api/v2/public/timestamp", controllers.GetTimestamp)
	app.Post("/api/v2/public/signup", controllers.Signup)
	app.Post("/api/v2/public/payments/callback", controllers.PaymentCallback)

	app.Get("/api/v2/wallet", controllers.GetWallet)
	app.Get("/api/v2/wallet/transactions", controllers.GetTransactions)
	app.Post("/api/v2/membership/purchase", controllers.PurchaseMembership)
	app.Get("/api/v2/referral", controllers.GetReferralOverview)
	app.Post("/api/v2/withdrawals", controllers.CreateWithdrawal)
	app.Get("/api/v2/withdrawals", controllers.GetWithdrawals)

	app.Post("/api/v2/admin/payments/:payment_ref/approve", admin_controllers.ApprovePayment)
	app.Post("/api/v2/admin/withdrawals/:id/resolve", admin_controllers.ResolveWithdrawal)
	app.Put("/api/v2/admin/members/:uid/activity", admin_controllers.SetMemberActivity)
	app.Get("/api/v2/admin/audits", admin_controllers.GetAuditEntries)

	return app
}
