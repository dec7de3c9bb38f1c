package distribution

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
	"gorm.io/gorm"

	"github.com/nexclub/nexclub/audit"
	"github.com/nexclub/nexclub/models"
	"github.com/nexclub/nexclub/referral"
	"github.com/nexclub/nexclub/types"
	"github.com/nexclub/nexclub/wallet"
)

var (
	ErrNoPendingPurchase   = errors.New("distribution: no pending purchase")
	ErrMissingAdmin        = errors.New("distribution: admin account missing")
	ErrTierNotPurchasable  = errors.New("distribution: tier not purchasable")
	ErrPurchaseOutstanding = errors.New("distribution: purchase already outstanding")
)

type Path = string

var (
	PathMembership Path = "membership"
	PathUpgrade    Path = "upgrade"
)

// A new membership splits into a fixed 20% admin share and two 40% pools.
var (
	rateAdminShare = decimal.RequireFromString("0.2")
	ratePool       = decimal.RequireFromString("0.4")
	rateAdminFee   = decimal.RequireFromString("0.1")

	baseReferralRates = map[types.Tier]decimal.Decimal{
		types.TierBronze:   decimal.RequireFromString("0.2"),
		types.TierSilver:   decimal.RequireFromString("0.3"),
		types.TierGold:     decimal.RequireFromString("0.35"),
		types.TierDiamond:  decimal.RequireFromString("0.4"),
		types.TierPlatinum: decimal.RequireFromString("0.4"),
		types.TierVIP:      decimal.RequireFromString("0.4"),
	}

	// Bonus percentage points once the referrer crosses the direct-referral
	// milestone. Diamond and above sit at the ceiling already.
	milestoneBonusRates = map[types.Tier]decimal.Decimal{
		types.TierBronze: decimal.RequireFromString("0.02"),
		types.TierSilver: decimal.RequireFromString("0.015"),
		types.TierGold:   decimal.RequireFromString("0.01"),
	}
)

const (
	// Direct referrals needed for the milestone bonus; the boundary is
	// inclusive.
	MilestoneDirectReferrals = 10

	moneyPlaces = 2
)

// StatsWriter receives one measurement point per distribution.
// *config.InfluxClient satisfies it.
type StatsWriter interface {
	NewPoint(name string, tags map[string]string, fields map[string]interface{})
}

type Config struct {
	AdminID    uint64
	TierPrices map[types.Tier]decimal.Decimal
}

// Engine distributes one confirmed membership payment among the admin
// account, the referral chain and the active community, as a single atomic
// unit against the store.
type Engine struct {
	db       *gorm.DB
	ledger   *wallet.Ledger
	resolver *referral.Resolver
	recorder *audit.Recorder
	cfg      Config
	stats    StatsWriter
}

func NewEngine(db *gorm.DB, ledger *wallet.Ledger, resolver *referral.Resolver, recorder *audit.Recorder, cfg Config, stats StatsWriter) *Engine {
	return &Engine{
		db:       db,
		ledger:   ledger,
		resolver: resolver,
		recorder: recorder,
		cfg:      cfg,
		stats:    stats,
	}
}

// Summary reports where the money of one distribution went. AdminTotal
// includes the base share, fees, unclaimed pools and residues; the grand
// total always equals Cost.
type Summary struct {
	MemberID      uint64          `json:"member_id"`
	TransactionID uint64          `json:"transaction_id"`
	Tier          types.Tier      `json:"tier"`
	Path          Path            `json:"path"`
	Cost          decimal.Decimal `json:"cost"`
	AdminTotal    decimal.Decimal `json:"admin_total"`
	ReferralNet   decimal.Decimal `json:"referral_net"`
	CommunityNet  decimal.Decimal `json:"community_net"`
	Fees          decimal.Decimal `json:"fees"`
}

// InitiatePurchase marks a membership order: it sets the pending-purchase
// marker and appends the member's pending purchase/upgrade Transaction
// carrying a fresh payment reference. At most one purchase may be
// outstanding per member.
func (e *Engine) InitiatePurchase(ctx context.Context, memberID uint64, tier types.Tier) (string, error) {
	price, ok := e.cfg.TierPrices[tier]
	if !ok {
		return "", ErrTierNotPurchasable
	}

	paymentRef := uuid.NewString()

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member *models.Member
		if err := models.Lock(tx).First(&member, "id = ?", memberID).Error; err != nil {
			return fmt.Errorf("distribution: load member %d: %w", memberID, err)
		}

		if _, ok := member.PendingPurchase(); ok {
			return ErrPurchaseOutstanding
		}

		if tier.Rank() <= member.Tier.Rank() {
			return ErrTierNotPurchasable
		}

		if err := member.SetPendingPurchase(tier, paymentRef); err != nil {
			return ErrPurchaseOutstanding
		}

		if err := tx.Model(member).Updates(map[string]interface{}{
			"pending_tier":        member.PendingTier,
			"pending_payment_ref": member.PendingPaymentRef,
		}).Error; err != nil {
			return fmt.Errorf("distribution: mark pending purchase: %w", err)
		}

		kind := types.KindPurchase
		if member.Tier != types.TierNone {
			kind = types.KindUpgrade
		}

		txn := &models.Transaction{
			MemberID:    member.ID,
			Kind:        kind,
			Amount:      price,
			Description: string(tier) + " membership order by " + member.UID,
			PaymentRef:  null.StringFrom(paymentRef),
			Status:      types.StatusPending,
		}

		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("distribution: record order: %w", err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return paymentRef, nil
}

// Distribute applies one confirmed payment. The member must carry a pending
// purchase matching paymentRef; the marker is cleared on success, so a second
// confirmation of the same payment fails with ErrNoPendingPurchase instead of
// paying twice. The whole distribution commits or none of it does.
//
// actor is the admin who confirmed the payment by hand; gateway-driven
// distributions pass nil and leave no audit entry.
func (e *Engine) Distribute(ctx context.Context, memberID uint64, paymentRef string, actor *audit.Actor) (*Summary, error) {
	summary := &Summary{MemberID: memberID}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member *models.Member
		if err := models.Lock(tx).First(&member, "id = ?", memberID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoPendingPurchase
			}
			return fmt.Errorf("distribution: load member %d: %w", memberID, err)
		}

		pending, ok := member.PendingPurchase()
		if !ok || pending.PaymentRef != paymentRef {
			return ErrNoPendingPurchase
		}

		cost, ok := e.cfg.TierPrices[pending.Tier]
		if !ok {
			return ErrTierNotPurchasable
		}

		var admin *models.Member
		if err := models.Lock(tx).First(&admin, "id = ?", e.cfg.AdminID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMissingAdmin
			}
			return fmt.Errorf("distribution: load admin: %w", err)
		}

		summary.Tier = pending.Tier
		summary.Cost = cost

		if member.Tier != types.TierNone {
			summary.Path = PathUpgrade
			if err := e.upgrade(tx, member, admin, cost, paymentRef, summary); err != nil {
				return err
			}
		} else {
			summary.Path = PathMembership
			if err := e.newMembership(tx, member, admin, cost, paymentRef, summary); err != nil {
				return err
			}
		}

		if err := tx.Model(member).Updates(map[string]interface{}{
			"tier":                string(pending.Tier),
			"active":              true,
			"pending_tier":        nil,
			"pending_payment_ref": nil,
		}).Error; err != nil {
			return fmt.Errorf("distribution: finalize member %d: %w", member.ID, err)
		}

		var orderTxn *models.Transaction
		if err := tx.Where(
			"member_id = ? AND payment_ref = ? AND status = ?",
			member.ID, paymentRef, types.StatusPending,
		).First(&orderTxn).Error; err != nil {
			return fmt.Errorf("distribution: order transaction %s: %w", paymentRef, err)
		}

		flipped, err := models.TransitionStatus(tx, orderTxn.ID, types.StatusPending, types.StatusApproved)
		if err != nil {
			return fmt.Errorf("distribution: approve order %d: %w", orderTxn.ID, err)
		}
		if !flipped {
			return ErrNoPendingPurchase
		}

		summary.TransactionID = orderTxn.ID

		if actor != nil {
			details := "confirmed " + string(pending.Tier) + " payment " + paymentRef + " for " + member.UID
			if err := e.recorder.Record(tx, *actor, "payment.approve", orderTxn.ID, details); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	e.writeStats(summary)

	return summary, nil
}

// upgrade: the entire cost goes to the admin account. No referral or
// community split.
func (e *Engine) upgrade(tx *gorm.DB, member, admin *models.Member, cost decimal.Decimal, paymentRef string, summary *Summary) error {
	desc := "tier upgrade to " + string(summary.Tier) + " by " + member.UID

	if _, err := e.ledger.Credit(tx, admin.ID, cost, types.KindUpgrade, desc, paymentRef, true); err != nil {
		return err
	}

	summary.AdminTotal = summary.AdminTotal.Add(cost)

	return nil
}

// newMembership splits the cost 20/40/40 between the admin base share, the
// referral pool and the community pool. Rounding happens only at the final
// credited amount per recipient; fees, unclaimed pools and rounding residues
// all land on the admin account, so the distributed total equals cost
// exactly.
func (e *Engine) newMembership(tx *gorm.DB, member, admin *models.Member, cost decimal.Decimal, paymentRef string, summary *Summary) error {
	adminShare := cost.Mul(rateAdminShare).Round(moneyPlaces)
	referralPool := cost.Mul(ratePool).Round(moneyPlaces)
	communityPool := cost.Sub(adminShare).Sub(referralPool)

	if err := e.creditAdmin(tx, admin, adminShare, types.KindPurchase,
		"base share of "+string(summary.Tier)+" membership by "+member.UID, paymentRef, summary); err != nil {
		return err
	}

	if err := e.distributeReferralPool(tx, member, admin, referralPool, paymentRef, summary); err != nil {
		return err
	}

	return e.distributeCommunityPool(tx, member, admin, communityPool, paymentRef, summary)
}

func (e *Engine) distributeReferralPool(tx *gorm.DB, member, admin *models.Member, pool decimal.Decimal, paymentRef string, summary *Summary) error {
	referrer, err := e.resolver.ReferrerIn(tx, member)
	if err != nil {
		return err
	}

	if referrer == nil || referrer.Tier == types.TierNone {
		return e.creditAdmin(tx, admin, pool, types.KindReferralIncome,
			"unclaimed referral pool of "+member.UID+" (no eligible referrer)", paymentRef, summary)
	}

	rate := baseReferralRates[referrer.Tier]
	if referrer.DirectReferrals >= MilestoneDirectReferrals {
		rate = rate.Add(milestoneBonusRates[referrer.Tier])
	}

	gross := pool.Mul(rate).Round(moneyPlaces)

	fee := decimal.Zero
	if !referrer.Tier.FeeExempt() && referrer.ID != admin.ID {
		fee = gross.Mul(rateAdminFee).Round(moneyPlaces)
	}
	net := gross.Sub(fee)

	if _, err := e.ledger.Credit(tx, referrer.ID, net, types.KindReferralIncome,
		"referral commission for "+member.UID+" membership", paymentRef, true); err != nil {
		return err
	}
	summary.ReferralNet = summary.ReferralNet.Add(net)

	if fee.IsPositive() {
		if err := e.creditAdmin(tx, admin, fee, types.KindAdminFee,
			"admin fee on referral commission of "+referrer.UID, paymentRef, summary); err != nil {
			return err
		}
		summary.Fees = summary.Fees.Add(fee)
	}

	if unclaimed := pool.Sub(gross); unclaimed.IsPositive() {
		if err := e.creditAdmin(tx, admin, unclaimed, types.KindReferralIncome,
			"unclaimed referral pool of "+member.UID, paymentRef, summary); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) distributeCommunityPool(tx *gorm.DB, member, admin *models.Member, pool decimal.Decimal, paymentRef string, summary *Summary) error {
	// The buyer still holds tier none here, so it never appears in its own
	// community split.
	var eligible []*models.Member
	if err := models.Lock(tx).
		Where("active = ? AND tier <> ?", true, string(types.TierNone)).
		Order("id").
		Find(&eligible).Error; err != nil {
		return fmt.Errorf("distribution: load community: %w", err)
	}

	if len(eligible) == 0 {
		return e.creditAdmin(tx, admin, pool, types.KindCommunityIncome,
			"community pool of "+member.UID+" (no eligible members)", paymentRef, summary)
	}

	var totalShares int64
	for _, m := range eligible {
		totalShares += m.CommunityShares()
	}

	shareValue := pool.Div(decimal.NewFromInt(totalShares))
	distributed := decimal.Zero

	for _, m := range eligible {
		// Rounded down so the residue is never negative.
		gross := shareValue.Mul(decimal.NewFromInt(m.CommunityShares())).RoundDown(moneyPlaces)
		if !gross.IsPositive() {
			continue
		}

		fee := decimal.Zero
		if !m.Tier.FeeExempt() && m.ID != admin.ID {
			fee = gross.Mul(rateAdminFee).Round(moneyPlaces)
		}
		net := gross.Sub(fee)

		if m.ID == admin.ID {
			if err := e.creditAdmin(tx, admin, net, types.KindCommunityIncome,
				"community share for "+member.UID+" membership", paymentRef, summary); err != nil {
				return err
			}
		} else {
			if _, err := e.ledger.Credit(tx, m.ID, net, types.KindCommunityIncome,
				"community share for "+member.UID+" membership", paymentRef, true); err != nil {
				return err
			}
			summary.CommunityNet = summary.CommunityNet.Add(net)
		}

		if fee.IsPositive() {
			if err := e.creditAdmin(tx, admin, fee, types.KindAdminFee,
				"admin fee on community share of "+m.UID, paymentRef, summary); err != nil {
				return err
			}
			summary.Fees = summary.Fees.Add(fee)
		}

		distributed = distributed.Add(gross)
	}

	if residue := pool.Sub(distributed); residue.IsPositive() {
		return e.creditAdmin(tx, admin, residue, types.KindCommunityIncome,
			"community pool residue of "+member.UID, paymentRef, summary)
	}

	return nil
}

func (e *Engine) creditAdmin(tx *gorm.DB, admin *models.Member, amount decimal.Decimal, kind types.TransactionKind, description, paymentRef string, summary *Summary) error {
	if _, err := e.ledger.Credit(tx, admin.ID, amount, kind, description, paymentRef, true); err != nil {
		return err
	}

	summary.AdminTotal = summary.AdminTotal.Add(amount)

	return nil
}

func (e *Engine) writeStats(summary *Summary) {
	if e.stats == nil {
		return
	}

	e.stats.NewPoint("distributions",
		map[string]string{
			"tier": string(summary.Tier),
			"path": summary.Path,
		},
		map[string]interface{}{
			"cost":          summary.Cost.InexactFloat64(),
			"admin_total":   summary.AdminTotal.InexactFloat64(),
			"referral_net":  summary.ReferralNet.InexactFloat64(),
			"community_net": summary.CommunityNet.InexactFloat64(),
			"fees":          summary.Fees.InexactFloat64(),
		},
	)
}
