// Package testdb opens throwaway sqlite-backed databases for package tests,
// so ledger and engine tests exercise the real transactional code paths.
package testdb

import (
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nexclub/nexclub/models"
)

func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return db
}
