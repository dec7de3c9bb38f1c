package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
	"gorm.io/gorm"

	"github.com/nexclub/nexclub/types"
)

// Transaction is the append-only ledger record. Amount is signed: credits to
// the owning member are positive, withdrawal holds and debits negative. Once
// created the only permitted mutation is a single status transition through
// TransitionStatus.
type Transaction struct {
	ID          uint64                  `json:"id" gorm:"primaryKey"`
	UUID        uuid.UUID               `json:"uuid"`
	MemberID    uint64                  `json:"member_id" gorm:"index"`
	Kind        types.TransactionKind   `json:"kind"`
	Amount      decimal.Decimal         `json:"amount" gorm:"type:numeric(32,16)"`
	Description string                  `json:"description"`
	PaymentRef  null.String             `json:"payment_ref"`
	Status      types.TransactionStatus `json:"status" gorm:"default:pending;index"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}

	return nil
}

func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// TransitionStatus is the conditional state transition used by the
// distribution finalizer and the withdrawal workflow: it flips the status
// only when the current status still matches, so concurrent resolutions of
// the same record cannot both succeed.
func TransitionStatus(tx *gorm.DB, id uint64, from, to types.TransactionStatus) (bool, error) {
	result := tx.Model(&Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

type TransactionJSON struct {
	UUID        uuid.UUID               `json:"uuid"`
	Kind        types.TransactionKind   `json:"kind"`
	Amount      decimal.Decimal         `json:"amount"`
	Description string                  `json:"description"`
	PaymentRef  string                  `json:"payment_ref,omitempty"`
	Status      types.TransactionStatus `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
}

func (t *Transaction) ToJSON() TransactionJSON {
	return TransactionJSON{
		UUID:        t.UUID,
		Kind:        t.Kind,
		Amount:      t.Amount,
		Description: t.Description,
		PaymentRef:  t.PaymentRef.String,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
}
