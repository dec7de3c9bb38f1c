package controllers

import (
	"github.com/nexclub/nexclub/audit"
	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/distribution"
	"github.com/nexclub/nexclub/gateway"
	"github.com/nexclub/nexclub/payout"
	"github.com/nexclub/nexclub/referral"
	"github.com/nexclub/nexclub/wallet"
	"github.com/nexclub/nexclub/withdrawal"
)

var (
	Ledger   *wallet.Ledger
	Resolver *referral.Resolver
	Auditor  *audit.Recorder
	Engine   *distribution.Engine
	Workflow *withdrawal.Workflow
	Gateway  gateway.Gateway
)

// Initialize wires the engines from the process-global config handles. Call
// after config.InitializeConfig.
func Initialize() {
	Ledger = wallet.NewLedger(config.DataBase, config.Nats)
	Resolver = referral.NewResolver(config.DataBase)
	Auditor = audit.NewRecorder(config.DataBase)

	Engine = distribution.NewEngine(
		config.DataBase,
		Ledger,
		Resolver,
		Auditor,
		distribution.Config{
			AdminID:    config.App.AdminID,
			TierPrices: config.App.Prices(),
		},
		config.InfluxDB,
	)

	Workflow = withdrawal.NewWorkflow(
		config.DataBase,
		Ledger,
		Auditor,
		payout.NewClient(),
		config.Nats,
		config.App.Minimum(),
		config.App.PayoutTimeout(),
	)

	Gateway = gateway.NewHTTPGateway(config.Redis)
}
