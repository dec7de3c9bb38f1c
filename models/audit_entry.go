package models

import "time"

// AuditEntry records one privileged admin decision. Entries are append-only:
// no code path updates or deletes them.
type AuditEntry struct {
	ID         uint64    `json:"id" gorm:"primaryKey"`
	ActorID    uint64    `json:"actor_id" gorm:"index"`
	ActorEmail string    `json:"actor_email"`
	Action     string    `json:"action"`
	TargetID   uint64    `json:"target_id" gorm:"index"`
	Details    string    `json:"details"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}
