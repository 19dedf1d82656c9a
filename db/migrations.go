package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Migration is one schema step. Down reverses Up.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// MigrationStatus reports whether a migration has been applied, and when.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// ErrNothingToRollback is returned by Down on an empty schema.
var ErrNothingToRollback = errors.New("no migrations to roll back")

// Migrator applies the embedded migrations in version order and records each
// one in curator_schema_version.
type Migrator struct {
	conn       *sql.DB
	logger     *slog.Logger
	migrations []Migration
}

// NewMigrator creates a migrator for the curator schema. A nil logger uses
// slog.Default().
func NewMigrator(conn *sql.DB, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{conn: conn, logger: logger, migrations: sortMigrations(postgresMigrations)}
}

// sortMigrations returns a copy of ms ordered by version.
func sortMigrations(ms []Migration) []Migration {
	sorted := append([]Migration(nil), ms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted
}

// checkMigrations requires sorted versions 1..n with both directions present.
func checkMigrations(ms []Migration) error {
	for i, m := range ms {
		if m.Version != i+1 {
			return fmt.Errorf("migration %q has version %d, want %d", m.Name, m.Version, i+1)
		}
		if m.Up == "" || m.Down == "" {
			return fmt.Errorf("migration %d (%s) is missing its up or down statement", m.Version, m.Name)
		}
	}
	return nil
}

// Up applies every migration not yet recorded and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := checkMigrations(m.migrations); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		m.logger.Info("applying migration", "version", mig.Version, "name", mig.Name)
		err := m.step(ctx, mig.Up,
			"INSERT INTO curator_schema_version (version, name) VALUES ($1, $2)", mig.Version, mig.Name)
		if err != nil {
			return n, fmt.Errorf("failed to run migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		n++
	}
	m.logger.Info("schema up to date", "applied", n, "version", len(m.migrations))
	return n, nil
}

// Down reverses the newest applied migration and returns it.
func (m *Migrator) Down(ctx context.Context) (*Migration, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	latest := 0
	for v := range applied {
		latest = max(latest, v)
	}
	if latest == 0 {
		return nil, ErrNothingToRollback
	}

	idx := sort.Search(len(m.migrations), func(i int) bool { return m.migrations[i].Version >= latest })
	if idx == len(m.migrations) || m.migrations[idx].Version != latest {
		return nil, fmt.Errorf("applied migration %d is unknown to this binary", latest)
	}
	mig := m.migrations[idx]

	m.logger.Info("rolling back migration", "version", mig.Version, "name", mig.Name)
	if err := m.step(ctx, mig.Down, "DELETE FROM curator_schema_version WHERE version = $1", mig.Version); err != nil {
		return nil, fmt.Errorf("failed to roll back migration %d (%s): %w", mig.Version, mig.Name, err)
	}
	return &mig, nil
}

// Status lists every known migration with its applied time, if any.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	return statusOf(m.migrations, applied), nil
}

func statusOf(ms []Migration, applied map[int]time.Time) []MigrationStatus {
	out := make([]MigrationStatus, 0, len(ms))
	for _, mig := range ms {
		s := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := applied[mig.Version]; ok {
			s.Applied = true
			s.AppliedAt = &at
		}
		out = append(out, s)
	}
	return out
}

// applied creates the version table if needed and returns the recorded
// versions with their applied times.
func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	if _, err := m.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS curator_schema_version (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, fmt.Errorf("failed to create schema version table: %w", err)
	}

	rows, err := m.conn.QueryContext(ctx, "SELECT version, applied_at FROM curator_schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var (
			v  int
			at time.Time
		)
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("failed to scan schema version: %w", err)
		}
		applied[v] = at
	}
	return applied, rows.Err()
}

// step runs a migration statement and its bookkeeping in one transaction.
func (m *Migrator) step(ctx context.Context, stmt, record string, args ...any) error {
	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}
