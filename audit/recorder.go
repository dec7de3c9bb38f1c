package audit

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nexclub/nexclub/models"
)

// Actor identifies the admin behind a privileged decision.
type Actor struct {
	ID    uint64
	Email string
	IP    string
}

// Recorder appends audit entries. There is deliberately no update or delete
// path.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one entry inside the caller's transaction so the entry
// commits together with the decision it documents.
func (r *Recorder) Record(tx *gorm.DB, actor Actor, action string, targetID uint64, details string) error {
	entry := &models.AuditEntry{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		TargetID:   targetID,
		Details:    details,
		IP:         actor.IP,
	}

	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("audit: record %s: %w", action, err)
	}

	return nil
}

func (r *Recorder) ByActor(actorID uint64, limit int) ([]*models.AuditEntry, error) {
	var entries []*models.AuditEntry
	err := r.db.Where("actor_id = ?", actorID).Order("id desc").Limit(limit).Find(&entries).Error

	return entries, err
}

func (r *Recorder) ByTarget(targetID uint64, limit int) ([]*models.AuditEntry, error) {
	var entries []*models.AuditEntry
	err := r.db.Where("target_id = ?", targetID).Order("id desc").Limit(limit).Find(&entries).Error

	return entries, err
}

func (r *Recorder) ByRange(from, to time.Time, limit int) ([]*models.AuditEntry, error) {
	var entries []*models.AuditEntry
	err := r.db.Where("created_at >= ? AND created_at <= ?", from, to).Order("id desc").Limit(limit).Find(&entries).Error

	return entries, err
}
