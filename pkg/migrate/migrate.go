package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/vendibook/vendibook-backend/pkg/logger"
)

// DefaultDir is where new migrations are written by the create command.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migration filesystem. An empty dir selects the
// migrations compiled into the binary.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat migrations dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations path %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// Migrator applies the Vendibook schema to Postgres.
type Migrator struct {
	provider *goose.Provider
	logg     *logger.Logger
}

// New builds a migrator over fsys. The caller keeps ownership of db.
func New(db *sql.DB, fsys fs.FS, logg *logger.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if fsys == nil {
		return nil, fmt.Errorf("migration source is required")
	}
	if err := ValidateFS(fsys); err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("build goose provider: %w", err)
	}
	return &Migrator{provider: provider, logg: logg}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	m.logResults(ctx, results)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	if result != nil {
		m.logResults(ctx, []*goose.MigrationResult{result})
	}
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Status logs the state of every known migration.
func (m *Migrator) Status(ctx context.Context) error {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	for _, status := range statuses {
		fields := map[string]any{
			"version": status.Source.Version,
			"path":    status.Source.Path,
			"state":   string(status.State),
		}
		if !status.AppliedAt.IsZero() {
			fields["applied_at"] = status.AppliedAt
		}
		m.info(m.withFields(ctx, fields), "migration status")
	}
	return nil
}

// To migrates up or down until the database sits at targetVersion.
func (m *Migrator) To(ctx context.Context, targetVersion string) error {
	target, err := ParseVersion(targetVersion)
	if err != nil {
		return err
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = m.provider.UpTo(ctx, target)
	default:
		results, err = m.provider.DownTo(ctx, target)
	}
	m.logResults(ctx, results)
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

// ParseVersion parses a YYYYMMDDHHMMSS migration version.
func ParseVersion(value string) (int64, error) {
	if len(value) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", value)
	}
	version, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", value, err)
	}
	return version, nil
}

func (m *Migrator) logResults(ctx context.Context, results []*goose.MigrationResult) {
	for _, result := range results {
		if result == nil || result.Source == nil {
			continue
		}
		fields := map[string]any{
			"version":     result.Source.Version,
			"path":        result.Source.Path,
			"direction":   result.Direction,
			"duration_ms": result.Duration.Milliseconds(),
		}
		if result.Error != nil {
			if m.logg != nil {
				m.logg.Error(m.withFields(ctx, fields), "migration failed", result.Error)
			}
			continue
		}
		m.info(m.withFields(ctx, fields), "migration applied")
	}
}

func (m *Migrator) withFields(ctx context.Context, fields map[string]any) context.Context {
	if m.logg == nil {
		return ctx
	}
	return m.logg.WithFields(ctx, fields)
}

func (m *Migrator) info(ctx context.Context, msg string) {
	if m.logg != nil {
		m.logg.Info(ctx, msg)
	}
}
