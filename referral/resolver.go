package referral

import (
	"context"
	"errors"
	"fmt"

	"github.com/emirpasic/gods/sets/hashset"
	"github.com/volatiletech/null"
	"gorm.io/gorm"

	"github.com/nexclub/nexclub/models"
)

var (
	ErrCyclicReferral  = errors.New("referral: assignment would create a cycle")
	ErrAlreadyReferred = errors.New("referral: member already has a referrer")
)

// Resolver maintains and queries the upline chain. The referrer graph is kept
// acyclic at write time, so walks never need a traversal guard beyond the
// visited set used during assignment.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Referrer returns the direct referrer of a member, or nil when the member
// was not referred.
func (r *Resolver) Referrer(ctx context.Context, memberID uint64) (*models.Member, error) {
	var member *models.Member
	if err := r.db.WithContext(ctx).First(&member, "id = ?", memberID).Error; err != nil {
		return nil, fmt.Errorf("referral: load member %d: %w", memberID, err)
	}

	if !member.ReferrerID.Valid {
		return nil, nil
	}

	var referrer *models.Member
	if err := r.db.WithContext(ctx).First(&referrer, "id = ?", member.ReferrerID.Uint64).Error; err != nil {
		return nil, fmt.Errorf("referral: load referrer of %d: %w", memberID, err)
	}

	return referrer, nil
}

// ReferrerIn is Referrer for callers already inside a transaction; the
// referrer row is locked so commission math reads a stable tier and counter.
func (r *Resolver) ReferrerIn(tx *gorm.DB, member *models.Member) (*models.Member, error) {
	if !member.ReferrerID.Valid {
		return nil, nil
	}

	var referrer *models.Member
	if err := models.Lock(tx).First(&referrer, "id = ?", member.ReferrerID.Uint64).Error; err != nil {
		return nil, fmt.Errorf("referral: load referrer of %d: %w", member.ID, err)
	}

	return referrer, nil
}

// Assign links a member to its referrer (set once, immutable afterwards) and
// propagates the registration through the upline: the referrer's
// direct-referral counter and every ancestor's indirect-referral counter grow
// by one. The whole walk runs in one database transaction, so either all
// counters move or none do.
func (r *Resolver) Assign(ctx context.Context, memberID, referrerID uint64) error {
	if memberID == referrerID {
		return ErrCyclicReferral
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member *models.Member
		if err := models.Lock(tx).First(&member, "id = ?", memberID).Error; err != nil {
			return fmt.Errorf("referral: load member %d: %w", memberID, err)
		}

		if member.ReferrerID.Valid {
			return ErrAlreadyReferred
		}

		visited := hashset.New(memberID)

		var referrer *models.Member
		if err := models.Lock(tx).First(&referrer, "id = ?", referrerID).Error; err != nil {
			return fmt.Errorf("referral: load referrer %d: %w", referrerID, err)
		}

		if err := tx.Model(member).Update("referrer_id", null.Uint64From(referrerID)).Error; err != nil {
			return fmt.Errorf("referral: link member %d: %w", memberID, err)
		}

		if err := bumpCounter(tx, referrer.ID, "direct_referrals"); err != nil {
			return err
		}

		visited.Add(referrer.ID)

		// Walk referrer-of-referrer until the chain ends.
		current := referrer
		for current.ReferrerID.Valid {
			uplineID := current.ReferrerID.Uint64
			if visited.Contains(uplineID) {
				return ErrCyclicReferral
			}
			visited.Add(uplineID)

			var upline *models.Member
			if err := models.Lock(tx).First(&upline, "id = ?", uplineID).Error; err != nil {
				return fmt.Errorf("referral: load upline %d: %w", uplineID, err)
			}

			if err := bumpCounter(tx, upline.ID, "indirect_referrals"); err != nil {
				return err
			}

			current = upline
		}

		return nil
	})
}

// Downline returns the members directly referred by the given member.
func (r *Resolver) Downline(ctx context.Context, memberID uint64, limit int) ([]*models.Member, error) {
	var members []*models.Member
	if err := r.db.WithContext(ctx).Where("referrer_id = ?", memberID).Order("id").Limit(limit).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("referral: load downline of %d: %w", memberID, err)
	}

	return members, nil
}

func bumpCounter(tx *gorm.DB, memberID uint64, column string) error {
	if err := tx.Model(&models.Member{}).
		Where("id = ?", memberID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error; err != nil {
		return fmt.Errorf("referral: increment %s of %d: %w", column, memberID, err)
	}

	return nil
}
