package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
	"gorm.io/gorm"

	"github.com/nexclub/nexclub/models"
	"github.com/nexclub/nexclub/types"
)

var (
	ErrInvalidAmount     = errors.New("wallet: invalid amount")
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
)

// EventPublisher pushes wallet events to interested subscribers.
// *nats.Conn satisfies it.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// Ledger is the only component that mutates member balances. Every mutation
// locks the member row, validates the amount and appends exactly one
// Transaction record.
type Ledger struct {
	db     *gorm.DB
	events EventPublisher
}

func NewLedger(db *gorm.DB, events EventPublisher) *Ledger {
	return &Ledger{db: db, events: events}
}

// Operation is one entry of an atomic batch.
type Operation struct {
	MemberID    uint64
	Amount      decimal.Decimal // positive = credit, negative = debit
	Kind        types.TransactionKind
	Description string
	PaymentRef  string
	Earn        bool
}

// Credit increases the balance (and, when earn is set, the lifetime
// earnings) of a member inside the caller's transaction.
func (l *Ledger) Credit(tx *gorm.DB, memberID uint64, amount decimal.Decimal, kind types.TransactionKind, description, paymentRef string, earn bool) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var member *models.Member
	if err := models.Lock(tx).First(&member, "id = ?", memberID).Error; err != nil {
		return nil, fmt.Errorf("wallet: load member %d: %w", memberID, err)
	}

	if err := member.PlusFunds(tx, amount, earn); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		MemberID:    memberID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		PaymentRef:  null.NewString(paymentRef, len(paymentRef) > 0),
		Status:      types.StatusCompleted,
	}

	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("wallet: record credit: %w", err)
	}

	l.publishBalance(member)

	return txn, nil
}

// Debit decreases the balance and appends a completed Transaction with a
// negative amount.
func (l *Ledger) Debit(tx *gorm.DB, memberID uint64, amount decimal.Decimal, kind types.TransactionKind, description string) (*models.Transaction, error) {
	return l.debit(tx, memberID, amount, kind, description, types.StatusCompleted)
}

// Hold is the withdrawal hold: the balance is debited immediately, the
// Transaction stays pending until an admin resolves it.
func (l *Ledger) Hold(tx *gorm.DB, memberID uint64, amount decimal.Decimal, description string) (*models.Transaction, error) {
	return l.debit(tx, memberID, amount, types.KindWithdrawal, description, types.StatusPending)
}

func (l *Ledger) debit(tx *gorm.DB, memberID uint64, amount decimal.Decimal, kind types.TransactionKind, description string, status types.TransactionStatus) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var member *models.Member
	if err := models.Lock(tx).First(&member, "id = ?", memberID).Error; err != nil {
		return nil, fmt.Errorf("wallet: load member %d: %w", memberID, err)
	}

	if member.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	if err := member.SubFunds(tx, amount); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		MemberID:    memberID,
		Kind:        kind,
		Amount:      amount.Neg(),
		Description: description,
		Status:      status,
	}

	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("wallet: record debit: %w", err)
	}

	l.publishBalance(member)

	return txn, nil
}

// ReleaseHold credits a previously held amount back to the member. The money
// movement is documented by the withdrawal Transaction flipping to rejected
// in the same database transaction, so no new record is appended and the
// refund never counts as earnings.
func (l *Ledger) ReleaseHold(tx *gorm.DB, memberID uint64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	var member *models.Member
	if err := models.Lock(tx).First(&member, "id = ?", memberID).Error; err != nil {
		return fmt.Errorf("wallet: load member %d: %w", memberID, err)
	}

	if err := member.PlusFunds(tx, amount, false); err != nil {
		return err
	}

	l.publishBalance(member)

	return nil
}

// ApplyBatch applies a list of operations as one atomic unit. Any failure
// rolls back every operation of the batch.
func (l *Ledger) ApplyBatch(ctx context.Context, ops []Operation) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			var err error
			if op.Amount.IsPositive() {
				_, err = l.Credit(tx, op.MemberID, op.Amount, op.Kind, op.Description, op.PaymentRef, op.Earn)
			} else {
				_, err = l.Debit(tx, op.MemberID, op.Amount.Neg(), op.Kind, op.Description)
			}
			if err != nil {
				return err
			}
		}

		return nil
	})
}

func (l *Ledger) publishBalance(member *models.Member) {
	if l.events == nil {
		return
	}

	payload, err := json.Marshal(member.ToJSON())
	if err != nil {
		return
	}

	l.events.Publish("private."+member.UID+".balance", payload)
}
