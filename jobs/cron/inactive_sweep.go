package cron

import (
	"context"

	"github.com/jasonlvhit/gocron"
	"github.com/shopspring/decimal"

	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/models"
	"github.com/nexclub/nexclub/types"
	"github.com/nexclub/nexclub/wallet"
)

// InactiveSweepJob moves the remaining wallet balance of deactivated members
// to the admin account once a day. Each sweep is a paired inactive_transfer
// debit/credit applied atomically through the ledger.
type InactiveSweepJob struct {
	Ledger *wallet.Ledger
}

func (j *InactiveSweepJob) Process() {
	s := gocron.NewScheduler()
	s.Every(1).Day().At("00:30:00").Do(j.sweepInactiveBalances)
	<-s.Start()
}

func (j *InactiveSweepJob) sweepInactiveBalances() {
	var members []*models.Member

	config.DataBase.
		Where("active = ? AND balance > 0 AND id <> ?", false, config.App.AdminID).
		Order("id").
		Find(&members)

	for _, member := range members {
		amount := member.Balance
		if !amount.GreaterThan(decimal.Zero) {
			continue
		}

		ops := []wallet.Operation{
			{
				MemberID:    member.ID,
				Amount:      amount.Neg(),
				Kind:        types.KindInactiveTransfer,
				Description: "inactive balance sweep of " + member.UID,
			},
			{
				MemberID:    config.App.AdminID,
				Amount:      amount,
				Kind:        types.KindInactiveTransfer,
				Description: "inactive balance of " + member.UID,
				Earn:        true,
			},
		}

		if err := j.Ledger.ApplyBatch(context.Background(), ops); err != nil {
			config.Logger.Errorf("Failed to sweep member %d: %v", member.ID, err)
		}
	}
}
