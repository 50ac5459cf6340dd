// Package migrate applies numbered SQL migrations to a SQLite database and
// records the schema version in a tracking table.
package migrate

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Latest targets the highest migration the provider knows about.
const Latest = -1

// ErrNoDownMigration is returned when a rollback reaches a migration that
// cannot be undone.
var ErrNoDownMigration = errors.New("migration has no down SQL")

// Direction says which half of a migration runs.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Migration is one numbered schema change.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Step is a migration run in one direction.
type Step struct {
	Migration
	Direction Direction
}

// SQL returns the statements the step executes.
func (s Step) SQL() string {
	if s.Direction == Down {
		return s.Down
	}
	return s.Up
}

// ResultVersion returns the schema version once the step has run.
func (s Step) ResultVersion() int {
	if s.Direction == Down {
		return s.Migration.Version - 1
	}
	return s.Migration.Version
}

// DB is satisfied by both *sql.DB and *sql.Tx.
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// MigrationProvider supplies migrations and stores the applied version.
type MigrationProvider interface {
	GetMigrations() ([]Migration, error)
	GetCurrentVersion(db *sql.DB) (int, error)
	SetVersion(db DB, version int) error
	CreateMigrationTable(db *sql.DB) error
}

// Migrator moves a database between schema versions.
type Migrator struct {
	db       *sql.DB
	provider MigrationProvider
	logger   *zap.SugaredLogger
}

// NewMigrator returns a migrator for db. A nil logger discards messages.
func NewMigrator(db *sql.DB, provider MigrationProvider, logger *zap.SugaredLogger) *Migrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Migrator{db: db, provider: provider, logger: logger}
}

// GetCurrentVersion returns the applied version, creating the tracking
// table if needed.
func (m *Migrator) GetCurrentVersion() (int, error) {
	if err := m.provider.CreateMigrationTable(m.db); err != nil {
		return 0, err
	}
	return m.provider.GetCurrentVersion(m.db)
}

// Plan lists the steps that take the schema from its current version to
// target, in the order they run. Going down, each migration above target is
// undone newest first.
func (m *Migrator) Plan(target int) ([]Step, error) {
	current, err := m.GetCurrentVersion()
	if err != nil {
		return nil, err
	}
	migrations, err := m.provider.GetMigrations()
	if err != nil {
		return nil, err
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })

	if target == Latest {
		target = 0
		if n := len(migrations); n > 0 {
			target = migrations[n-1].Version
		}
	}
	if target < 0 {
		return nil, fmt.Errorf("invalid target version %d", target)
	}

	var steps []Step
	if target >= current {
		for _, mg := range migrations {
			if mg.Version > current && mg.Version <= target {
				steps = append(steps, Step{Migration: mg, Direction: Up})
			}
		}
		return steps, nil
	}
	for i := len(migrations) - 1; i >= 0; i-- {
		if mg := migrations[i]; mg.Version <= current && mg.Version > target {
			steps = append(steps, Step{Migration: mg, Direction: Down})
		}
	}
	return steps, nil
}

// MigrateTo runs the plan for target. Each step commits on its own, so a
// failure leaves the schema at the last step that succeeded.
func (m *Migrator) MigrateTo(target int) error {
	steps, err := m.Plan(target)
	if err != nil {
		return err
	}
	for _, s := range steps {
		if err := m.run(s); err != nil {
			return fmt.Errorf("migration %d (%s) %v: %w", s.Migration.Version, s.Name, s.Direction, err)
		}
	}
	return nil
}

// MigrateUp applies every pending migration.
func (m *Migrator) MigrateUp() error {
	return m.MigrateTo(Latest)
}

// MigrateDown rolls back to target, which must be below the current version.
func (m *Migrator) MigrateDown(target int) error {
	current, err := m.GetCurrentVersion()
	if err != nil {
		return err
	}
	if target >= current {
		return fmt.Errorf("target version %d must be less than current version %d", target, current)
	}
	return m.MigrateTo(target)
}

// GetPendingMigrations returns the migrations MigrateUp would apply.
func (m *Migrator) GetPendingMigrations() ([]Migration, error) {
	steps, err := m.Plan(Latest)
	if err != nil {
		return nil, err
	}
	pending := make([]Migration, len(steps))
	for i, s := range steps {
		pending[i] = s.Migration
	}
	return pending, nil
}

// SetVersion records version without running any SQL.
func (m *Migrator) SetVersion(version int) error {
	if err := m.provider.CreateMigrationTable(m.db); err != nil {
		return err
	}
	return m.provider.SetVersion(m.db, version)
}

func (m *Migrator) run(s Step) error {
	stmt := s.SQL()
	if stmt == "" {
		if s.Direction == Down {
			return ErrNoDownMigration
		}
		return errors.New("migration has no up SQL")
	}

	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return err
	}
	if err := m.provider.SetVersion(tx, s.ResultVersion()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	m.logger.Infow("applied migration", "version", s.Migration.Version, "name", s.Name, "direction", s.Direction)
	return nil
}
