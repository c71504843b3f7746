// Package dbtest opens isolated in-memory sqlite databases carrying the
// settlement schema for repository and service tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS user_roles (
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at DATETIME,
  PRIMARY KEY (user_id, role)
);`, `
CREATE TABLE IF NOT EXISTS host_profiles (
  user_id TEXT PRIMARY KEY,
  stripe_account_id TEXT,
  stripe_onboarding_complete INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  host_id TEXT NOT NULL,
  title TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS booking_requests (
  id TEXT PRIMARY KEY,
  shopper_id TEXT NOT NULL,
  host_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  total_price NUMERIC NOT NULL,
  deposit_amount NUMERIC,
  payment_intent_id TEXT,
  checkout_session_id TEXT,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  hold_status TEXT,
  hold_expires_at DATETIME,
  payout_processed INTEGER NOT NULL DEFAULT 0,
  payout_processed_at DATETIME,
  payout_transfer_id TEXT,
  payout_hold_until DATETIME,
  payout_hold_reason TEXT,
  payout_hold_set_by TEXT,
  payout_attempts INTEGER NOT NULL DEFAULT 0,
  deposit_status TEXT NOT NULL DEFAULT 'none',
  deposit_charge_id TEXT,
  deposit_refunded_at DATETIME,
  deposit_refund_notes TEXT,
  cancellation_reason TEXT,
  cancelled_by TEXT,
  refund_id TEXT,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS sale_transactions (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  platform_fee NUMERIC NOT NULL,
  seller_payout NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'paid',
  payout_completed_at DATETIME,
  transfer_id TEXT,
  message TEXT,
  payout_attempts INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS admin_notes (
  id TEXT PRIMARY KEY,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  created_by TEXT NOT NULL,
  note TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS ledger_events (
  id TEXT PRIMARY KEY,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'usd',
  processor_ref TEXT NOT NULL,
  actor_user_id TEXT,
  metadata TEXT,
  created_at DATETIME,
  UNIQUE (type, processor_ref)
);`, `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`}

// Open returns a fresh database unique to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:settlement_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
