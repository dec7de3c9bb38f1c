package types

type Tier string

const (
	TierNone     Tier = "none"
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierDiamond  Tier = "diamond"
	TierPlatinum Tier = "platinum"
	TierVIP      Tier = "vip"
)

var tierRanks = map[Tier]int{
	TierNone:     0,
	TierBronze:   1,
	TierSilver:   2,
	TierGold:     3,
	TierDiamond:  4,
	TierPlatinum: 5,
	TierVIP:      6,
}

func ParseTier(s string) (Tier, bool) {
	t := Tier(s)
	_, ok := tierRanks[t]

	return t, ok
}

func (t Tier) Rank() int {
	return tierRanks[t]
}

// FeeExempt reports whether income of this tier is exempt from the admin fee.
// Diamond and above are exempt.
func (t Tier) FeeExempt() bool {
	return t.Rank() >= TierDiamond.Rank()
}

type TransactionKind = string

var (
	KindPurchase         TransactionKind = "purchase"
	KindUpgrade          TransactionKind = "upgrade"
	KindReferralIncome   TransactionKind = "referral_income"
	KindCommunityIncome  TransactionKind = "community_income"
	KindAdminFee         TransactionKind = "admin_fee"
	KindWithdrawal       TransactionKind = "withdrawal"
	KindInactiveTransfer TransactionKind = "inactive_transfer"
)

type TransactionStatus = string

var (
	StatusPending   TransactionStatus = "pending"
	StatusApproved  TransactionStatus = "approved"
	StatusRejected  TransactionStatus = "rejected"
	StatusCompleted TransactionStatus = "completed"
)

type PayoutMode = string

var (
	PayoutAuto   PayoutMode = "auto"
	PayoutManual PayoutMode = "manual"
)

type WithdrawalDecision = string

var (
	DecisionApprove WithdrawalDecision = "approve"
	DecisionReject  WithdrawalDecision = "reject"
)
