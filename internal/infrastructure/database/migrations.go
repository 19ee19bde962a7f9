package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
)

// MigrationsFS holds the goose migration files. It is set by the
// migrations package so the schema is compiled into the binary.
var MigrationsFS fs.FS

// MigrationsDir is the directory within MigrationsFS containing migration files.
var MigrationsDir = "."

// MigrationStatus describes one migration and whether it has been applied.
type MigrationStatus struct {
	Version   int64
	Source    string
	Applied   bool
	AppliedAt time.Time
}

// Migrate applies all pending migrations in version order.
//
// Each migration runs in its own transaction, so a failure leaves earlier
// migrations committed and re-running Migrate continues from the failed one.
// Having no migrations registered is not an error.
func (db *DB) Migrate(ctx context.Context) error {
	p, err := db.migrationProvider()
	if errors.Is(err, goose.ErrNoMigrations) {
		return nil
	}
	if err != nil {
		return err
	}

	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("applying migration %d: %w", r.Source.Version, r.Error)
		}
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
// This is primarily for development and testing.
func (db *DB) MigrateDown(ctx context.Context) error {
	p, err := db.migrationProvider()
	if errors.Is(err, goose.ErrNoMigrations) {
		return nil
	}
	if err != nil {
		return err
	}

	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if current == 0 {
		return nil
	}

	if _, err := p.Down(ctx); err != nil {
		return fmt.Errorf("rolling back migration %d: %w", current, err)
	}
	return nil
}

// MigrationStatus lists every known migration in version order.
func (db *DB) MigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	p, err := db.migrationProvider()
	if errors.Is(err, goose.ErrNoMigrations) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading migration status: %w", err)
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version:   s.Source.Version,
			Source:    s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// migrationProvider builds a goose provider for this connection's dialect.
// It returns goose.ErrNoMigrations when nothing is registered.
func (db *DB) migrationProvider() (*goose.Provider, error) {
	if MigrationsFS == nil {
		return nil, goose.ErrNoMigrations
	}

	fsys, err := fs.Sub(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("opening migrations directory %q: %w", MigrationsDir, err)
	}

	p, err := goose.NewProvider(db.dialect.gooseDialect(), db.DB, fsys)
	if err != nil {
		if errors.Is(err, goose.ErrNoMigrations) {
			return nil, err
		}
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	return p, nil
}

// gooseDialect maps the connection dialect to goose's.
func (d Dialect) gooseDialect() goose.Dialect {
	if d == DialectPostgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}
