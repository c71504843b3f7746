package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendibook/vendibook-backend/pkg/config"
	"github.com/vendibook/vendibook-backend/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestQueryLoggerReportsSlowStatements(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	conn := newTestDB(t)
	conn.Logger = newQueryLogger(logg, time.Nanosecond)

	if err := conn.Create(&testModel{Name: "slow"}).Error; err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"component":"gorm"`)) || !bytes.Contains(buf.Bytes(), []byte("SLOW SQL")) {
		t.Fatalf("expected slow query warning, got %s", buf.String())
	}

	var missing testModel
	err := conn.Where("name = ?", "absent").First(&missing).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	buf.Reset()
	conn.Logger = newQueryLogger(logg, time.Hour)
	_ = conn.Where("name = ?", "absent").First(&missing).Error
	if buf.Len() != 0 {
		t.Fatalf("record not found should not be logged: %s", buf.String())
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestDialectorForRejectsUnknownDriver(t *testing.T) {
	if _, err := dialectorFor(config.DBConfig{Driver: "mysql", DSN: "x"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	d, err := dialectorFor(config.DBConfig{Driver: "sqlite", DSN: "file::memory:"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name() != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %s", d.Name())
	}
	d, err = dialectorFor(config.DBConfig{DSN: "postgres://localhost/vendibook"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name() != "postgres" {
		t.Fatalf("expected postgres dialector by default, got %s", d.Name())
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := errors.New(`ERROR: duplicate key value violates unique constraint "ledger_events_processor_ref_key"`)
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected generic duplicate detection")
	}
	if !IsUniqueViolation(err, "ledger_events_processor_ref_key") {
		t.Fatal("expected constraint match")
	}
	if IsUniqueViolation(err, "other_key") {
		t.Fatal("unexpected constraint match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is never a violation")
	}
}

func TestIsUniqueViolationUsesSQLState(t *testing.T) {
	err := fmt.Errorf("create ledger event: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_ledger_events_type_processor_ref"})
	if !IsUniqueViolation(err, "ux_ledger_events_type_processor_ref") {
		t.Fatal("expected sqlstate match")
	}
	if IsUniqueViolation(err, "other_key") {
		t.Fatal("unexpected constraint match")
	}
	fk := &pgconn.PgError{Code: "23503", Message: "duplicate key value lookalike"}
	if IsUniqueViolation(fk, "") {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if !IsUniqueViolation(gorm.ErrDuplicatedKey, "") {
		t.Fatal("expected gorm duplicated key to match")
	}
}

func TestIsUniqueViolationSQLiteWording(t *testing.T) {
	err := errors.New("UNIQUE constraint failed: ledger_events.processor_ref")
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected sqlite wording to match")
	}
}
