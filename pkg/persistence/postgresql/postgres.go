// Package postgresql provides PostgreSQL persistence for node settings.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/persistence"
	"github.com/dukex/scriptpanel/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects to databaseURL and migrates the schema.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

func (p *Persistence) LoadSettings(ctx context.Context, nodeID string) (models.NodeSettings, error) {
	var settings models.NodeSettings

	err := p.db.QueryRowContext(ctx,
		"SELECT script, executable_selection FROM node_settings WHERE node_id = $1", nodeID,
	).Scan(&settings.Script, &settings.ExecutableSelection)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NodeSettings{}, persistence.NewSettingsError("Load", nodeID, persistence.ErrSettingsNotFound)
		}

		return models.NodeSettings{}, persistence.NewSettingsError("Load", nodeID, err)
	}

	return settings, nil
}

func (p *Persistence) SaveSettings(ctx context.Context, nodeID string, settings models.NodeSettings) error {
	if err := persistence.ValidateNodeID(nodeID); err != nil {
		return persistence.NewSettingsError("Save", nodeID, err)
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO node_settings (node_id, script, executable_selection)
		VALUES ($1, $2, $3)
		ON CONFLICT (node_id) DO UPDATE
		SET script = EXCLUDED.script,
			executable_selection = EXCLUDED.executable_selection,
			updated_at = NOW()
	`, nodeID, settings.Script, settings.ExecutableSelection)
	if err != nil {
		return persistence.NewSettingsError("Save", nodeID, err)
	}

	p.logger.DebugContext(ctx, "Saved node settings", "node_id", nodeID)

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
