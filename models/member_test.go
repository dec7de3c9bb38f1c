package models_test

import (
	"testing"

	"github.com/nexclub/nexclub/models"
	"github.com/nexclub/nexclub/testdb"
	"github.com/nexclub/nexclub/types"
)

func TestMember_PendingPurchase(t *testing.T) {
	member := &models.Member{ID: 1}

	if _, ok := member.PendingPurchase(); ok {
		t.Fatal("fresh member must not carry a pending purchase")
	}

	if err := member.SetPendingPurchase(types.TierGold, "ref-1"); err != nil {
		t.Fatalf("set pending purchase: %v", err)
	}

	pending, ok := member.PendingPurchase()
	if !ok {
		t.Fatal("expected pending purchase after set")
	}
	if pending.Tier != types.TierGold || pending.PaymentRef != "ref-1" {
		t.Errorf("unexpected marker: %+v", pending)
	}

	if err := member.SetPendingPurchase(types.TierVIP, "ref-2"); err == nil {
		t.Error("expected error setting a second pending purchase")
	}

	member.ClearPendingPurchase()
	if _, ok := member.PendingPurchase(); ok {
		t.Error("expected marker cleared")
	}
}

func TestMember_CommunityShares(t *testing.T) {
	member := &models.Member{IndirectReferrals: models.DoubleShareIndirectReferrals - 1}
	if got := member.CommunityShares(); got != 1 {
		t.Errorf("expected 1 share, got %d", got)
	}

	member.IndirectReferrals = models.DoubleShareIndirectReferrals
	if got := member.CommunityShares(); got != 2 {
		t.Errorf("expected 2 shares, got %d", got)
	}
}

func TestTransitionStatus(t *testing.T) {
	db := testdb.Open(t)

	member := &models.Member{UID: "NXM1", Email: "m1@nexclub.test"}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("create member: %v", err)
	}

	txn := &models.Transaction{
		MemberID: member.ID,
		Kind:     types.KindWithdrawal,
		Status:   types.StatusPending,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	flipped, err := models.TransitionStatus(db, txn.ID, types.StatusPending, types.StatusApproved)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !flipped {
		t.Fatal("expected first transition to win")
	}

	flipped, err = models.TransitionStatus(db, txn.ID, types.StatusPending, types.StatusRejected)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if flipped {
		t.Error("expected second transition from pending to lose")
	}

	var reloaded *models.Transaction
	if err := db.First(&reloaded, "id = ?", txn.ID).Error; err != nil {
		t.Fatalf("reload transaction: %v", err)
	}
	if reloaded.Status != types.StatusApproved {
		t.Errorf("expected approved, got %s", reloaded.Status)
	}
}
