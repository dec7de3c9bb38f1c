package withdrawal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nexclub/nexclub/audit"
	"github.com/nexclub/nexclub/models"
	"github.com/nexclub/nexclub/types"
	"github.com/nexclub/nexclub/wallet"
)

var (
	ErrBelowMinimum     = errors.New("withdrawal: amount below minimum")
	ErrAlreadyProcessed = errors.New("withdrawal: already processed")
	ErrPayoutFailed     = errors.New("withdrawal: payout provider failure")
	ErrNotWithdrawal    = errors.New("withdrawal: transaction is not a withdrawal")
	ErrMissingUPI       = errors.New("withdrawal: member has no payout address")
)

// PayoutProvider is the external payout rail. reference is a caller-supplied
// idempotency key, so a retried call never pays twice.
type PayoutProvider interface {
	Payout(ctx context.Context, upi string, amount decimal.Decimal, reference string) (string, error)
}

// Workflow drives a withdrawal request from hold to payout or refund.
type Workflow struct {
	db       *gorm.DB
	ledger   *wallet.Ledger
	recorder *audit.Recorder
	provider PayoutProvider
	events   wallet.EventPublisher
	minimum  decimal.Decimal
	timeout  time.Duration
}

func NewWorkflow(db *gorm.DB, ledger *wallet.Ledger, recorder *audit.Recorder, provider PayoutProvider, events wallet.EventPublisher, minimum decimal.Decimal, timeout time.Duration) *Workflow {
	return &Workflow{
		db:       db,
		ledger:   ledger,
		recorder: recorder,
		provider: provider,
		events:   events,
		minimum:  minimum,
		timeout:  timeout,
	}
}

// Resolution is what the admin caller gets back. CanManual signals that the
// automatic payout failed, the request is still pending and a manual payout
// remains possible.
type Resolution struct {
	Transaction *models.Transaction `json:"transaction"`
	ProviderRef string              `json:"provider_ref,omitempty"`
	CanManual   bool                `json:"can_manual"`
}

// Request holds the amount: the balance drops immediately, the withdrawal
// Transaction stays pending until resolved.
func (w *Workflow) Request(ctx context.Context, memberID uint64, amount decimal.Decimal) (*models.Transaction, error) {
	if amount.LessThan(w.minimum) {
		return nil, ErrBelowMinimum
	}

	var txn *models.Transaction

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member *models.Member
		if err := models.Lock(tx).First(&member, "id = ?", memberID).Error; err != nil {
			return fmt.Errorf("withdrawal: load member %d: %w", memberID, err)
		}

		if member.Balance.LessThan(w.minimum) {
			return ErrBelowMinimum
		}

		held, err := w.ledger.Hold(tx, memberID, amount, "withdrawal request by "+member.UID)
		if err != nil {
			return err
		}

		txn = held

		return nil
	})
	if err != nil {
		return nil, err
	}

	w.publish(txn)

	return txn, nil
}

// Resolve settles one pending withdrawal. The pending check is a conditional
// status update, so two concurrent resolutions of the same request cannot
// both succeed: the loser fails with ErrAlreadyProcessed.
func (w *Workflow) Resolve(ctx context.Context, txnID uint64, decision types.WithdrawalDecision, note string, mode types.PayoutMode, actor audit.Actor) (*Resolution, error) {
	var txn *models.Transaction
	if err := w.db.WithContext(ctx).First(&txn, "id = ?", txnID).Error; err != nil {
		return nil, fmt.Errorf("withdrawal: load transaction %d: %w", txnID, err)
	}

	if txn.Kind != types.KindWithdrawal {
		return nil, ErrNotWithdrawal
	}

	held := txn.Amount.Neg()

	switch decision {
	case types.DecisionReject:
		return w.reject(ctx, txn, held, note, actor)
	case types.DecisionApprove:
		if mode == types.PayoutAuto {
			return w.approveAuto(ctx, txn, held, actor)
		}
		return w.approveManual(ctx, txn, note, actor)
	default:
		return nil, fmt.Errorf("withdrawal: unknown decision %q", decision)
	}
}

// reject refunds the held amount and flips the Transaction to rejected, in
// one database transaction. The refund does not count as earnings.
func (w *Workflow) reject(ctx context.Context, txn *models.Transaction, held decimal.Decimal, note string, actor audit.Actor) (*Resolution, error) {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flipped, err := models.TransitionStatus(tx, txn.ID, types.StatusPending, types.StatusRejected)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrAlreadyProcessed
		}

		if err := w.ledger.ReleaseHold(tx, txn.MemberID, held); err != nil {
			return err
		}

		return w.recorder.Record(tx, actor, "withdrawal.reject", txn.ID, note)
	})
	if err != nil {
		return nil, err
	}

	txn.Status = types.StatusRejected
	w.publish(txn)

	return &Resolution{Transaction: txn}, nil
}

// approveManual marks the request approved; the admin has already paid
// out-of-band.
func (w *Workflow) approveManual(ctx context.Context, txn *models.Transaction, note string, actor audit.Actor) (*Resolution, error) {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flipped, err := models.TransitionStatus(tx, txn.ID, types.StatusPending, types.StatusApproved)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrAlreadyProcessed
		}

		return w.recorder.Record(tx, actor, "withdrawal.approve", txn.ID, note)
	})
	if err != nil {
		return nil, err
	}

	txn.Status = types.StatusApproved
	w.publish(txn)

	return &Resolution{Transaction: txn}, nil
}

// approveAuto claims the request first (pending -> approved), then calls the
// provider. The claim keeps a concurrent resolver from paying the same
// request twice while the provider call is in flight. On provider failure
// the claim is released: the request stays pending and the caller is offered
// the manual fallback.
func (w *Workflow) approveAuto(ctx context.Context, txn *models.Transaction, held decimal.Decimal, actor audit.Actor) (*Resolution, error) {
	var member *models.Member
	if err := w.db.WithContext(ctx).First(&member, "id = ?", txn.MemberID).Error; err != nil {
		return nil, fmt.Errorf("withdrawal: load member %d: %w", txn.MemberID, err)
	}

	if !member.UPIAddress.Valid {
		return &Resolution{Transaction: txn, CanManual: true}, ErrMissingUPI
	}

	flipped, err := models.TransitionStatus(w.db, txn.ID, types.StatusPending, types.StatusApproved)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, ErrAlreadyProcessed
	}

	pctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	providerRef, err := w.provider.Payout(pctx, member.UPIAddress.String, held, txn.UUID.String())
	if err != nil {
		// Release the claim; a timeout is a failure, never an assumed
		// success.
		if _, revertErr := models.TransitionStatus(w.db, txn.ID, types.StatusApproved, types.StatusPending); revertErr != nil {
			return nil, revertErr
		}

		return &Resolution{Transaction: txn, CanManual: true}, fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}

	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := models.TransitionStatus(tx, txn.ID, types.StatusApproved, types.StatusCompleted); err != nil {
			return err
		}

		return w.recorder.Record(tx, actor, "withdrawal.payout", txn.ID, "provider reference "+providerRef)
	})
	if err != nil {
		return nil, err
	}

	txn.Status = types.StatusCompleted
	w.publish(txn)

	return &Resolution{Transaction: txn, ProviderRef: providerRef}, nil
}

func (w *Workflow) publish(txn *models.Transaction) {
	if w.events == nil {
		return
	}

	var member *models.Member
	if err := w.db.First(&member, "id = ?", txn.MemberID).Error; err != nil {
		return
	}

	payload, err := json.Marshal(txn.ToJSON())
	if err != nil {
		return
	}

	w.events.Publish("private."+member.UID+".withdrawal", payload)
}
