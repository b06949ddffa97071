// Package redis provides Redis persistence for node settings.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "scriptpanel:settings:"

	fieldScript              = "script"
	fieldExecutableSelection = "executable_selection"
	fieldUpdatedAt           = "updated_at"
)

// Persistence stores the settings of each node in a Redis hash.
type Persistence struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewPersistence connects to the redis:// URL and checks the connection.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return &Persistence{client: client, logger: logger}, nil
}

func key(nodeID string) string {
	return keyPrefix + nodeID
}

func (p *Persistence) LoadSettings(ctx context.Context, nodeID string) (models.NodeSettings, error) {
	values, err := p.client.HGetAll(ctx, key(nodeID)).Result()
	if err != nil {
		return models.NodeSettings{}, persistence.NewSettingsError("Load", nodeID, err)
	}

	if len(values) == 0 {
		return models.NodeSettings{}, persistence.NewSettingsError("Load", nodeID, persistence.ErrSettingsNotFound)
	}

	return models.NodeSettings{
		Script:              values[fieldScript],
		ExecutableSelection: values[fieldExecutableSelection],
	}, nil
}

func (p *Persistence) SaveSettings(ctx context.Context, nodeID string, settings models.NodeSettings) error {
	if err := persistence.ValidateNodeID(nodeID); err != nil {
		return persistence.NewSettingsError("Save", nodeID, err)
	}

	err := p.client.HSet(ctx, key(nodeID),
		fieldScript, settings.Script,
		fieldExecutableSelection, settings.ExecutableSelection,
		fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return persistence.NewSettingsError("Save", nodeID, err)
	}

	p.logger.DebugContext(ctx, "Saved node settings", "node_id", nodeID)

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}
