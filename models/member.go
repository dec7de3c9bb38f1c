package models

import (
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
	"gorm.io/gorm"

	"github.com/nexclub/nexclub/types"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Number of indirect referrals after which a member earns a double community
// share.
const DoubleShareIndirectReferrals = 50

type Member struct {
	ID                uint64          `json:"id" gorm:"primaryKey"`
	UID               string          `json:"uid" gorm:"uniqueIndex"`
	Email             string          `json:"email"`
	Role              string          `json:"role" gorm:"default:member"`
	Tier              types.Tier      `json:"tier" gorm:"default:none"`
	Balance           decimal.Decimal `json:"balance" gorm:"type:numeric(32,16);default:0" validate:"ValidateBalance"`
	TotalEarned       decimal.Decimal `json:"total_earned" gorm:"type:numeric(32,16);default:0"`
	DirectReferrals   int64           `json:"direct_referrals" gorm:"default:0"`
	IndirectReferrals int64           `json:"indirect_referrals" gorm:"default:0"`
	ReferrerID        null.Uint64     `json:"referrer_id"`
	Active            bool            `json:"active" gorm:"default:false"`
	PendingTier       null.String     `json:"pending_tier"`
	PendingPaymentRef null.String     `json:"pending_payment_ref"`
	UPIAddress        null.String     `json:"upi_address"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (m Member) ValidateBalance(Balance decimal.Decimal) bool {
	return Balance.GreaterThanOrEqual(decimal.Zero)
}

// PendingPurchase is the outstanding-purchase marker. A member either carries
// a full marker (tier and payment reference) or none at all; the two columns
// are never set independently.
type PendingPurchase struct {
	Tier       types.Tier
	PaymentRef string
}

func (m *Member) PendingPurchase() (PendingPurchase, bool) {
	if !m.PendingTier.Valid || !m.PendingPaymentRef.Valid {
		return PendingPurchase{}, false
	}

	return PendingPurchase{
		Tier:       types.Tier(m.PendingTier.String),
		PaymentRef: m.PendingPaymentRef.String,
	}, true
}

func (m *Member) SetPendingPurchase(tier types.Tier, paymentRef string) error {
	if _, ok := m.PendingPurchase(); ok {
		return errors.New("member " + strconv.FormatUint(m.ID, 10) + " already has an outstanding purchase")
	}

	m.PendingTier = null.StringFrom(string(tier))
	m.PendingPaymentRef = null.StringFrom(paymentRef)

	return nil
}

func (m *Member) ClearPendingPurchase() {
	m.PendingTier = null.String{}
	m.PendingPaymentRef = null.String{}
}

// PlusFunds credits the wallet balance. Lifetime earnings grow only for
// income credits, not for withdrawal refunds.
func (m *Member) PlusFunds(tx *gorm.DB, amount decimal.Decimal, earn bool) error {
	if !amount.IsPositive() {
		return errors.New("Cannot add funds (member id: " + strconv.FormatUint(m.ID, 10) + ", amount: " + amount.String() + ", balance: " + m.Balance.String() + ").")
	}

	m.Balance = m.Balance.Add(amount)
	if earn {
		m.TotalEarned = m.TotalEarned.Add(amount)
	}

	return tx.Model(m).Updates(map[string]interface{}{
		"balance":      m.Balance,
		"total_earned": m.TotalEarned,
	}).Error
}

func (m *Member) SubFunds(tx *gorm.DB, amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.GreaterThan(m.Balance) {
		return errors.New("Cannot subtract funds (member id: " + strconv.FormatUint(m.ID, 10) + ", amount: " + amount.String() + ", balance: " + m.Balance.String() + ").")
	}

	m.Balance = m.Balance.Sub(amount)

	return tx.Model(m).Update("balance", m.Balance).Error
}

// CommunityShares is the weight of this member in the community pool split.
func (m *Member) CommunityShares() int64 {
	if m.IndirectReferrals >= DoubleShareIndirectReferrals {
		return 2
	}

	return 1
}

type MemberJSON struct {
	UID               string          `json:"uid"`
	Tier              types.Tier      `json:"tier"`
	Balance           decimal.Decimal `json:"balance"`
	TotalEarned       decimal.Decimal `json:"total_earned"`
	DirectReferrals   int64           `json:"direct_referrals"`
	IndirectReferrals int64           `json:"indirect_referrals"`
	Active            bool            `json:"active"`
}

func (m *Member) ToJSON() MemberJSON {
	return MemberJSON{
		UID:               m.UID,
		Tier:              m.Tier,
		Balance:           m.Balance,
		TotalEarned:       m.TotalEarned,
		DirectReferrals:   m.DirectReferrals,
		IndirectReferrals: m.IndirectReferrals,
		Active:            m.Active,
	}
}
