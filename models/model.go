package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Lock adds a FOR UPDATE clause on postgres. sqlite has a single writer, the
// clause is unsupported there and row locking is implicit.
func Lock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() != "postgres" {
		return tx
	}

	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Member{}, &Transaction{}, &AuditEntry{})
}
