package config

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/chrissnell/taup/pkg/migrate"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationTable tracks the applied configuration schema version
const MigrationTable = "config_migrations"

// Migrations returns the configuration schema migrations
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Migrator returns a migrator for the configuration schema
func (s *SQLiteProvider) Migrator(logger *zap.SugaredLogger) *migrate.Migrator {
	return migrate.NewMigrator(s.db, migrate.NewFSProvider(Migrations(), MigrationTable), logger)
}

// InitSchema brings the configuration tables up to the latest version
func (s *SQLiteProvider) InitSchema() error {
	if err := s.Migrator(nil).MigrateUp(); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LoadConfig loads the complete configuration from SQLite database. Sections
// without a row keep their Default values.
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := Default()

	var model string
	err := s.db.QueryRow("SELECT model FROM configs WHERE name = 'default'").Scan(&model)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return config, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if model != "" {
		config.Model = model
	}

	// Load sampling
	sampling, err := s.GetSampling()
	if err != nil {
		return nil, fmt.Errorf("failed to load sampling config: %w", err)
	}
	config.Sampling = *sampling

	// Load phases
	phases, err := s.GetPhases()
	if err != nil {
		return nil, fmt.Errorf("failed to load phase config: %w", err)
	}
	config.Phases = *phases

	// Load server
	server, err := s.GetServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	config.Server = *server

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// GetSampling returns the sampling tolerances from the database
func (s *SQLiteProvider) GetSampling() (*SamplingData, error) {
	query := `
		SELECT min_delta_p, max_delta_p, max_depth_interval, max_range_interval,
		       max_interp_error, slowness_tolerance, allow_inner_core_s
		FROM sampling_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	sampling := Default().Sampling
	err := s.db.QueryRow(query).Scan(
		&sampling.MinDeltaP, &sampling.MaxDeltaP, &sampling.MaxDepthInterval,
		&sampling.MaxRangeInterval, &sampling.MaxInterpError,
		&sampling.SlownessTolerance, &sampling.AllowInnerCoreS,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query sampling config: %w", err)
	}
	return &sampling, nil
}

// GetPhases returns phase settings and the default phase list from the database
func (s *SQLiteProvider) GetPhases() (*PhaseData, error) {
	query := `
		SELECT expert, max_diffraction, max_refraction, refine
		FROM phase_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	phases := Default().Phases
	err := s.db.QueryRow(query).Scan(
		&phases.Expert, &phases.MaxDiffraction, &phases.MaxRefraction, &phases.Refine,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query phase config: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT name FROM default_phases
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query default phases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan default phase row: %w", err)
		}
		phases.Defaults = append(phases.Defaults, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &phases, nil
}

// GetServer returns the HTTP listener settings from the database
func (s *SQLiteProvider) GetServer() (*ServerData, error) {
	query := `
		SELECT listen_addr, port, depth_cache_size
		FROM server_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	server := Default().Server
	var listenAddr sql.NullString
	var port, cacheSize sql.NullInt64
	err := s.db.QueryRow(query).Scan(&listenAddr, &port, &cacheSize)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query server config: %w", err)
	}

	// Convert nullable fields, keeping defaults for NULL
	if listenAddr.Valid {
		server.ListenAddr = listenAddr.String
	}
	if port.Valid {
		server.Port = int(port.Int64)
	}
	if cacheSize.Valid {
		server.DepthCacheSize = int(cacheSize.Int64)
	}
	return &server, nil
}

// IsReadOnly returns false since SQLite supports writes
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Write methods for configuration management

// SaveConfig saves complete configuration to the database
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	if err := configData.Validate(); err != nil {
		return err
	}

	// Start transaction
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert or update config record
	configID, err := s.upsertConfig(tx, "default", configData.Model)
	if err != nil {
		return fmt.Errorf("failed to insert config: %w", err)
	}

	// Clear existing data
	if err := s.clearExistingConfig(tx, configID); err != nil {
		return fmt.Errorf("failed to clear existing config: %w", err)
	}

	if err := s.insertSampling(tx, configID, &configData.Sampling); err != nil {
		return fmt.Errorf("failed to insert sampling config: %w", err)
	}

	if err := s.insertPhases(tx, configID, &configData.Phases); err != nil {
		return fmt.Errorf("failed to insert phase config: %w", err)
	}

	_, err = tx.Exec(
		"INSERT INTO server_configs (config_id, listen_addr, port, depth_cache_size) VALUES (?, ?, ?, ?)",
		configID, nullString(configData.Server.ListenAddr), nullInt64(configData.Server.Port),
		nullInt64(configData.Server.DepthCacheSize),
	)
	if err != nil {
		return fmt.Errorf("failed to insert server config: %w", err)
	}

	// Commit transaction
	return tx.Commit()
}

// SetModel changes the default model name
func (s *SQLiteProvider) SetModel(model string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.upsertConfig(tx, "default", model); err != nil {
		return fmt.Errorf("failed to update model: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteProvider) upsertConfig(tx *sql.Tx, name, model string) (int64, error) {
	query := `
		INSERT INTO configs (name, model, created_at, updated_at)
		VALUES (?, ?, datetime('now'), datetime('now'))
		ON CONFLICT(name) DO UPDATE SET model = excluded.model, updated_at = datetime('now')
	`
	if _, err := tx.Exec(query, name, model); err != nil {
		return 0, err
	}

	var configID int64
	err := tx.QueryRow("SELECT id FROM configs WHERE name = ?", name).Scan(&configID)
	return configID, err
}

func (s *SQLiteProvider) clearExistingConfig(tx *sql.Tx, configID int64) error {
	queries := []string{
		"DELETE FROM sampling_configs WHERE config_id = ?",
		"DELETE FROM phase_configs WHERE config_id = ?",
		"DELETE FROM default_phases WHERE config_id = ?",
		"DELETE FROM server_configs WHERE config_id = ?",
	}

	for _, query := range queries {
		if _, err := tx.Exec(query, configID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteProvider) insertSampling(tx *sql.Tx, configID int64, sampling *SamplingData) error {
	query := `
		INSERT INTO sampling_configs (
			config_id, min_delta_p, max_delta_p, max_depth_interval,
			max_range_interval, max_interp_error, slowness_tolerance, allow_inner_core_s
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.Exec(query,
		configID, sampling.MinDeltaP, sampling.MaxDeltaP, sampling.MaxDepthInterval,
		sampling.MaxRangeInterval, sampling.MaxInterpError, sampling.SlownessTolerance,
		sampling.AllowInnerCoreS,
	)
	return err
}

func (s *SQLiteProvider) insertPhases(tx *sql.Tx, configID int64, phases *PhaseData) error {
	query := `
		INSERT INTO phase_configs (config_id, expert, max_diffraction, max_refraction, refine)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := tx.Exec(query, configID, phases.Expert, phases.MaxDiffraction, phases.MaxRefraction, phases.Refine)
	if err != nil {
		return err
	}

	for i, name := range phases.Defaults {
		_, err := tx.Exec(
			"INSERT INTO default_phases (config_id, position, name) VALUES (?, ?, ?)",
			configID, i, name,
		)
		if err != nil {
			return fmt.Errorf("phase %s: %w", name, err)
		}
	}
	return nil
}

// Helper functions for handling nullable fields
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}
