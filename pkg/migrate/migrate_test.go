package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var testMigrations = fstest.MapFS{
	"001_create_models.up.sql":     {Data: []byte("CREATE TABLE models (name TEXT PRIMARY KEY);")},
	"001_create_models.down.sql":   {Data: []byte("DROP TABLE models;")},
	"002_add_radius.up.sql":        {Data: []byte("ALTER TABLE models ADD COLUMN radius REAL;")},
	"002_add_radius.down.sql":      {Data: []byte("ALTER TABLE models DROP COLUMN radius;")},
	"003_create_phases.up.sql":     {Data: []byte("CREATE TABLE phases (name TEXT);")},
	"003_create_phases.down.sql":   {Data: []byte("DROP TABLE phases;")},
	"README.md":                    {Data: []byte("not a migration")},
	"004_missing_down_only.up.sql": {Data: []byte("CREATE TABLE extras (id INTEGER);")},
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n))
	return n == 1
}

func TestGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testMigrations, "").GetMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 4)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create models", migrations[0].Name)
	assert.NotEmpty(t, migrations[0].Up)
	assert.NotEmpty(t, migrations[0].Down)
	assert.Equal(t, 4, migrations[3].Version)
	assert.Empty(t, migrations[3].Down)
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testMigrations, "test_migrations"), nil)

	pending, err := m.GetPendingMigrations()
	require.NoError(t, err)
	assert.Len(t, pending, 4)

	require.NoError(t, m.MigrateUp())
	version, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 4, version)
	assert.True(t, tableExists(t, db, "phases"))

	// Running again is a no-op
	require.NoError(t, m.MigrateUp())
	pending, err = m.GetPendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)

	// 004 has no down migration
	assert.ErrorIs(t, m.MigrateDown(3), ErrNoDownMigration)

	require.NoError(t, m.SetVersion(3))
	require.NoError(t, m.MigrateTo(1))
	version, err = m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.True(t, tableExists(t, db, "models"))

	require.NoError(t, m.MigrateDown(0))
	version, err = m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.False(t, tableExists(t, db, "models"))

	assert.Error(t, m.MigrateDown(0), "target must be below the current version")
}

func TestPlan(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testMigrations, ""), nil)

	steps, err := m.Plan(2)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Migration.Version)
	assert.Equal(t, Up, steps[1].Direction)
	assert.Equal(t, 2, steps[1].ResultVersion())
	assert.Contains(t, steps[1].SQL(), "ADD COLUMN radius")

	require.NoError(t, m.MigrateTo(3))
	steps, err = m.Plan(1)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 3, steps[0].Migration.Version, "newest first going down")
	assert.Equal(t, Down, steps[0].Direction)
	assert.Equal(t, "down", steps[0].Direction.String())
	assert.Equal(t, 1, steps[1].ResultVersion())
	assert.Equal(t, "DROP TABLE phases;", steps[0].SQL())

	steps, err = m.Plan(3)
	require.NoError(t, err)
	assert.Empty(t, steps)

	_, err = m.Plan(-2)
	assert.Error(t, err)

	// planning never changes the schema
	version, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}
