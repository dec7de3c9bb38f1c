package distribution

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
	"gorm.io/gorm"

	"github.com/nexclub/nexclub/audit"
	"github.com/nexclub/nexclub/models"
	"github.com/nexclub/nexclub/referral"
	"github.com/nexclub/nexclub/testdb"
	"github.com/nexclub/nexclub/types"
	"github.com/nexclub/nexclub/wallet"
)

func testPrices() map[types.Tier]decimal.Decimal {
	return map[types.Tier]decimal.Decimal{
		types.TierBronze:   decimal.RequireFromString("50"),
		types.TierSilver:   decimal.RequireFromString("100"),
		types.TierGold:     decimal.RequireFromString("200"),
		types.TierDiamond:  decimal.RequireFromString("350"),
		types.TierPlatinum: decimal.RequireFromString("600"),
		types.TierVIP:      decimal.RequireFromString("1000"),
	}
}

func newEngine(t *testing.T, db *gorm.DB, adminID uint64) *Engine {
	t.Helper()

	ledger := wallet.NewLedger(db, nil)
	resolver := referral.NewResolver(db)
	recorder := audit.NewRecorder(db)

	return NewEngine(db, ledger, resolver, recorder, Config{
		AdminID:    adminID,
		TierPrices: testPrices(),
	}, nil)
}

type memberSpec struct {
	uid        string
	role       string
	tier       types.Tier
	active     bool
	direct     int64
	indirect   int64
	referrerID uint64
}

func createMember(t *testing.T, db *gorm.DB, spec memberSpec) *models.Member {
	t.Helper()

	role := spec.role
	if len(role) == 0 {
		role = models.RoleMember
	}

	member := &models.Member{
		UID:               spec.uid,
		Email:             spec.uid + "@nexclub.test",
		Role:              role,
		Tier:              spec.tier,
		Active:            spec.active,
		DirectReferrals:   spec.direct,
		IndirectReferrals: spec.indirect,
		ReferrerID:        null.NewUint64(spec.referrerID, spec.referrerID > 0),
	}

	if err := db.Create(member).Error; err != nil {
		t.Fatalf("create member %s: %v", spec.uid, err)
	}

	return member
}

func reload(t *testing.T, db *gorm.DB, id uint64) *models.Member {
	t.Helper()

	var member *models.Member
	if err := db.First(&member, "id = ?", id).Error; err != nil {
		t.Fatalf("reload member %d: %v", id, err)
	}

	return member
}

func balanceEquals(t *testing.T, db *gorm.DB, id uint64, want string) {
	t.Helper()

	member := reload(t, db, id)
	if !member.Balance.Equal(decimal.RequireFromString(want)) {
		t.Errorf("member %s: expected balance %s, got %s", member.UID, want, member.Balance)
	}
}

// Gold membership (cost 200) bought by a fresh member referred by a Silver
// upline with 10 direct referrals, alongside an active Diamond with a double
// share, an active Bronze and an active VIP admin.
func TestEngine_DistributeGoldMembership(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	admin := createMember(t, db, memberSpec{uid: "NXADMIN", role: models.RoleAdmin, tier: types.TierVIP, active: true})
	referrer := createMember(t, db, memberSpec{uid: "NXREF", tier: types.TierSilver, active: true, direct: 10})
	diamond := createMember(t, db, memberSpec{uid: "NXDIA", tier: types.TierDiamond, active: true, indirect: 50})
	bronze := createMember(t, db, memberSpec{uid: "NXBRZ", tier: types.TierBronze, active: true})
	buyer := createMember(t, db, memberSpec{uid: "NXBUY", tier: types.TierNone, referrerID: referrer.ID})

	engine := newEngine(t, db, admin.ID)

	paymentRef, err := engine.InitiatePurchase(ctx, buyer.ID, types.TierGold)
	if err != nil {
		t.Fatalf("initiate purchase: %v", err)
	}

	summary, err := engine.Distribute(ctx, buyer.ID, paymentRef, nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}

	// Admin: 40 base + 2.52 referral fee + 54.80 unclaimed referral pool
	// + 16 community share + 1.60 + 1.60 community fees = 116.52.
	balanceEquals(t, db, admin.ID, "116.52")
	// Referrer: 80*0.315 = 25.20 gross, 2.52 fee, 22.68 net referral
	// + 14.40 net community share.
	balanceEquals(t, db, referrer.ID, "37.08")
	// Diamond: two shares of 16, fee exempt.
	balanceEquals(t, db, diamond.ID, "32")
	// Bronze: 16 gross, 1.60 fee, 14.40 net.
	balanceEquals(t, db, bronze.ID, "14.4")

	if !summary.Cost.Equal(decimal.RequireFromString("200")) {
		t.Errorf("expected cost 200, got %s", summary.Cost)
	}
	total := summary.AdminTotal.Add(summary.ReferralNet).Add(summary.CommunityNet)
	if !total.Equal(summary.Cost) {
		t.Errorf("conservation broken: distributed %s of %s", total, summary.Cost)
	}

	buyer = reload(t, db, buyer.ID)
	if buyer.Tier != types.TierGold {
		t.Errorf("expected buyer tier gold, got %s", buyer.Tier)
	}
	if !buyer.Active {
		t.Error("expected buyer active after membership approval")
	}
	if _, ok := buyer.PendingPurchase(); ok {
		t.Error("expected pending purchase cleared")
	}

	var orderTxn *models.Transaction
	if err := db.First(&orderTxn, "member_id = ? AND payment_ref = ?", buyer.ID, paymentRef).Error; err != nil {
		t.Fatalf("load order transaction: %v", err)
	}
	if orderTxn.Status != types.StatusApproved {
		t.Errorf("expected order transaction approved, got %s", orderTxn.Status)
	}
}

func TestEngine_DistributeIdempotent(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	admin := createMember(t, db, memberSpec{uid: "NXADMIN", role: models.RoleAdmin, tier: types.TierVIP, active: true})
	buyer := createMember(t, db, memberSpec{uid: "NXBUY", tier: types.TierNone})

	engine := newEngine(t, db, admin.ID)

	paymentRef, err := engine.InitiatePurchase(ctx, buyer.ID, types.TierGold)
	if err != nil {
		t.Fatalf("initiate purchase: %v", err)
	}

	if _, err := engine.Distribute(ctx, buyer.ID, paymentRef, nil); err != nil {
		t.Fatalf("first distribute: %v", err)
	}

	adminBalance := reload(t, db, admin.ID).Balance

	if _, err := engine.Distribute(ctx, buyer.ID, paymentRef, nil); !errors.Is(err, ErrNoPendingPurchase) {
		t.Fatalf("expected ErrNoPendingPurchase, got %v", err)
	}

	if got := reload(t, db, admin.ID).Balance; !got.Equal(adminBalance) {
		t.Errorf("second distribute moved money: %s -> %s", adminBalance, got)
	}
}

// Upgrade purchase of cost 350 by an existing Silver member: the full cost
// goes to admin, nobody else moves.
func TestEngine_UpgradeGoesToAdmin(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	admin := createMember(t, db, memberSpec{uid: "NXADMIN", role: models.RoleAdmin, tier: types.TierVIP, active: true})
	bystander := createMember(t, db, memberSpec{uid: "NXBYS", tier: types.TierDiamond, active: true})
	member := createMember(t, db, memberSpec{uid: "NXUPG", tier: types.TierSilver, active: true})

	engine := newEngine(t, db, admin.ID)

	paymentRef, err := engine.InitiatePurchase(ctx, member.ID, types.TierDiamond)
	if err != nil {
		t.Fatalf("initiate upgrade: %v", err)
	}

	summary, err := engine.Distribute(ctx, member.ID, paymentRef, nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}

	if summary.Path != PathUpgrade {
		t.Errorf("expected upgrade path, got %s", summary.Path)
	}

	balanceEquals(t, db, admin.ID, "350")
	balanceEquals(t, db, bystander.ID, "0")

	member = reload(t, db, member.ID)
	if member.Tier != types.TierDiamond {
		t.Errorf("expected member tier diamond, got %s", member.Tier)
	}

	var count int64
	db.Model(&models.Transaction{}).
		Where("member_id = ? AND kind = ? AND status = ?", admin.ID, types.KindUpgrade, types.StatusCompleted).
		Count(&count)
	if count != 1 {
		t.Errorf("expected exactly one upgrade credit on admin, got %d", count)
	}
}

// With no referrer and nobody active, both pools fall through to admin and
// the admin collects the full cost.
func TestEngine_PoolsFallThroughToAdmin(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	admin := createMember(t, db, memberSpec{uid: "NXADMIN", role: models.RoleAdmin, tier: types.TierVIP, active: false})
	buyer := createMember(t, db, memberSpec{uid: "NXBUY", tier: types.TierNone})

	engine := newEngine(t, db, admin.ID)

	paymentRef, err := engine.InitiatePurchase(ctx, buyer.ID, types.TierGold)
	if err != nil {
		t.Fatalf("initiate purchase: %v", err)
	}

	if _, err := engine.Distribute(ctx, buyer.ID, paymentRef, nil); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	balanceEquals(t, db, admin.ID, "200")

	var kinds []string
	db.Model(&models.Transaction{}).
		Where("member_id = ? AND status = ?", admin.ID, types.StatusCompleted).
		Order("id").
		Pluck("kind", &kinds)

	want := []string{types.KindPurchase, types.KindReferralIncome, types.KindCommunityIncome}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d admin credits, got %v", len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("credit %d: expected kind %s, got %s", i, want[i], kinds[i])
		}
	}
}

// A referrer still at tier none is ineligible; the whole referral pool goes
// to admin.
func TestEngine_IneligibleReferrer(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	admin := createMember(t, db, memberSpec{uid: "NXADMIN", role: models.RoleAdmin, tier: types.TierVIP, active: false})
	referrer := createMember(t, db, memberSpec{uid: "NXREF", tier: types.TierNone})
	buyer := createMember(t, db, memberSpec{uid: "NXBUY", tier: types.TierNone, referrerID: referrer.ID})

	engine := newEngine(t, db, admin.ID)

	paymentRef, err := engine.InitiatePurchase(ctx, buyer.ID, types.TierGold)
	if err != nil {
		t.Fatalf("initiate purchase: %v", err)
	}

	if _, err := engine.Distribute(ctx, buyer.ID, paymentRef, nil); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	balanceEquals(t, db, referrer.ID, "0")
	balanceEquals(t, db, admin.ID, "200")
}

// The milestone boundary is inclusive at 10 direct referrals.
func TestEngine_MilestoneBoundary(t *testing.T) {
	cases := []struct {
		name    string
		direct  int64
		wantNet string
	}{
		{name: "nine_direct_base_rate", direct: 9, wantNet: "21.6"},
		{name: "ten_direct_bonus_rate", direct: 10, wantNet: "22.68"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := testdb.Open(t)
			ctx := context.Background()

			admin := createMember(t, db, memberSpec{uid: "NXADMIN", role: models.RoleAdmin, tier: types.TierVIP, active: false})
			referrer := createMember(t, db, memberSpec{uid: "NXREF", tier: types.TierSilver, direct: tc.direct})
			buyer := createMember(t, db, memberSpec{uid: "NXBUY", tier: types.TierNone, referrerID: referrer.ID})

			engine := newEngine(t, db, admin.ID)

			paymentRef, err := engine.InitiatePurchase(ctx, buyer.ID, types.TierGold)
			if err != nil {
				t.Fatalf("initiate purchase: %v", err)
			}

			if _, err := engine.Distribute(ctx, buyer.ID, paymentRef, nil); err != nil {
				t.Fatalf("distribute: %v", err)
			}

			balanceEquals(t, db, referrer.ID, tc.wantNet)
		})
	}
}

func TestEngine_MissingAdminAborts(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	buyer := createMember(t, db, memberSpec{uid: "NXBUY", tier: types.TierNone})

	engine := newEngine(t, db, buyer.ID+1000)

	paymentRef, err := engine.InitiatePurchase(ctx, buyer.ID, types.TierGold)
	if err != nil {
		t.Fatalf("initiate purchase: %v", err)
	}

	if _, err := engine.Distribute(ctx, buyer.ID, paymentRef, nil); !errors.Is(err, ErrMissingAdmin) {
		t.Fatalf("expected ErrMissingAdmin, got %v", err)
	}

	// The failed distribution must leave the pending purchase intact so the
	// payment can be re-applied once the operator fixes the account.
	buyer = reload(t, db, buyer.ID)
	pending, ok := buyer.PendingPurchase()
	if !ok || pending.PaymentRef != paymentRef {
		t.Error("expected pending purchase preserved after abort")
	}
}

func TestEngine_InitiatePurchaseOutstanding(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	createMember(t, db, memberSpec{uid: "NXADMIN", role: models.RoleAdmin, tier: types.TierVIP, active: true})
	buyer := createMember(t, db, memberSpec{uid: "NXBUY", tier: types.TierNone})

	engine := newEngine(t, db, 1)

	if _, err := engine.InitiatePurchase(ctx, buyer.ID, types.TierGold); err != nil {
		t.Fatalf("initiate purchase: %v", err)
	}

	if _, err := engine.InitiatePurchase(ctx, buyer.ID, types.TierSilver); !errors.Is(err, ErrPurchaseOutstanding) {
		t.Errorf("expected ErrPurchaseOutstanding, got %v", err)
	}
}

func TestEngine_InitiatePurchaseRejectsDowngrade(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	member := createMember(t, db, memberSpec{uid: "NXGOLD", tier: types.TierGold, active: true})

	engine := newEngine(t, db, member.ID)

	if _, err := engine.InitiatePurchase(ctx, member.ID, types.TierSilver); !errors.Is(err, ErrTierNotPurchasable) {
		t.Errorf("expected ErrTierNotPurchasable, got %v", err)
	}
}

// Every rupee of the cost must land somewhere: admin credits plus referrer
// and community nets always sum to the cost, whatever the referrer
// configuration.
func TestEngine_Conservation(t *testing.T) {
	referrerTiers := []types.Tier{
		types.TierNone, types.TierBronze, types.TierSilver,
		types.TierGold, types.TierDiamond, types.TierVIP,
	}

	for _, tier := range referrerTiers {
		for _, direct := range []int64{0, 9, 10, 25} {
			tier, direct := tier, direct
			t.Run(fmt.Sprintf("%s_%d_direct", tier, direct), func(t *testing.T) {
				db := testdb.Open(t)
				ctx := context.Background()

				admin := createMember(t, db, memberSpec{uid: "NXADMIN", role: models.RoleAdmin, tier: types.TierVIP, active: true})
				referrer := createMember(t, db, memberSpec{uid: "NXREF", tier: tier, active: tier != types.TierNone, direct: direct})
				extra := createMember(t, db, memberSpec{uid: "NXEXT", tier: types.TierBronze, active: true, indirect: 60})
				buyer := createMember(t, db, memberSpec{uid: "NXBUY", tier: types.TierNone, referrerID: referrer.ID})

				engine := newEngine(t, db, admin.ID)

				paymentRef, err := engine.InitiatePurchase(ctx, buyer.ID, types.TierGold)
				if err != nil {
					t.Fatalf("initiate purchase: %v", err)
				}

				if _, err := engine.Distribute(ctx, buyer.ID, paymentRef, nil); err != nil {
					t.Fatalf("distribute: %v", err)
				}

				total := decimal.Zero
				for _, id := range []uint64{admin.ID, referrer.ID, extra.ID, buyer.ID} {
					total = total.Add(reload(t, db, id).Balance)
				}

				if !total.Equal(decimal.RequireFromString("200")) {
					t.Errorf("tier %s direct %d: distributed %s of 200", tier, direct, total)
				}
			})
		}
	}
}

// Manual admin approval leaves an audit trail.
func TestEngine_DistributeAudited(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	admin := createMember(t, db, memberSpec{uid: "NXADMIN", role: models.RoleAdmin, tier: types.TierVIP, active: true})
	buyer := createMember(t, db, memberSpec{uid: "NXBUY", tier: types.TierNone})

	engine := newEngine(t, db, admin.ID)

	paymentRef, err := engine.InitiatePurchase(ctx, buyer.ID, types.TierGold)
	if err != nil {
		t.Fatalf("initiate purchase: %v", err)
	}

	actor := &audit.Actor{ID: admin.ID, Email: admin.Email, IP: "10.0.0.1"}
	summary, err := engine.Distribute(ctx, buyer.ID, paymentRef, actor)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}

	var entry *models.AuditEntry
	if err := db.First(&entry, "action = ?", "payment.approve").Error; err != nil {
		t.Fatalf("load audit entry: %v", err)
	}
	if entry.ActorID != admin.ID {
		t.Errorf("expected actor %d, got %d", admin.ID, entry.ActorID)
	}
	if entry.TargetID != summary.TransactionID {
		t.Errorf("expected target %d, got %d", summary.TransactionID, entry.TargetID)
	}
}
