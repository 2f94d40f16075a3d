// Package testutil provides an in-memory database with the application schema.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

var schema = []string{
	`CREATE TABLE entitlements (
		user_id TEXT PRIMARY KEY,
		credits BIGINT NOT NULL,
		tier TEXT NOT NULL,
		last_reset_at DATETIME,
		usage_count BIGINT NOT NULL DEFAULT 0,
		billing_customer_ref TEXT,
		billing_subscription_ref TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_entitlements_billing_customer_ref ON entitlements(billing_customer_ref)`,
	`CREATE TABLE recipes (
		id BIGINT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		cuisine TEXT NOT NULL,
		parameters TEXT NOT NULL,
		result_text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX ix_recipes_user_created ON recipes(user_id, created_at DESC, id DESC)`,
	`CREATE TABLE billing_events (
		id BIGINT PRIMARY KEY,
		provider TEXT NOT NULL,
		provider_event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		user_id TEXT,
		payload TEXT NOT NULL,
		result TEXT,
		received_at DATETIME NOT NULL,
		processed_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_billing_events_provider_event ON billing_events(provider, provider_event_id)`,
}

// SetupDB opens a fresh shared-cache in-memory SQLite database limited to a
// single connection, so concurrent transactions serialise like row locks.
func SetupDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// AssertCount fails the test when table does not hold want rows.
func AssertCount(t testing.TB, db *gorm.DB, table string, want int64) {
	t.Helper()
	var got int64
	if err := db.Table(table).Count(&got).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	if got != want {
		t.Fatalf("expected %d rows in %s, got %d", want, table, got)
	}
}
