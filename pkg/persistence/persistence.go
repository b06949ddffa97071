package persistence

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dukex/scriptpanel/pkg/models"
)

type Persistence interface {
	LoadSettings(ctx context.Context, nodeID string) (models.NodeSettings, error)
	SaveSettings(ctx context.Context, nodeID string, settings models.NodeSettings) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

var nodeIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,127}$`)

// ValidateNodeID rejects ids that are empty, too long or could escape a
// storage namespace.
func ValidateNodeID(nodeID string) error {
	if !nodeIDPattern.MatchString(nodeID) || nodeID == "." || nodeID == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidNodeID, nodeID)
	}

	return nil
}

// SettingsService exposes the settings of one node as the host settings
// service. Nodes without saved settings get the defaults.
type SettingsService struct {
	store    Persistence
	nodeID   string
	defaults models.NodeSettings
}

func NewSettingsService(store Persistence, nodeID string, defaults models.NodeSettings) *SettingsService {
	return &SettingsService{store: store, nodeID: nodeID, defaults: defaults}
}

func (s *SettingsService) GetInitialSettings(ctx context.Context) (models.NodeSettings, error) {
	settings, err := s.store.LoadSettings(ctx, s.nodeID)
	if IsSettingsNotFound(err) {
		return s.defaults, nil
	}

	return settings, err
}

func (s *SettingsService) SaveSettings(ctx context.Context, settings models.NodeSettings) error {
	return s.store.SaveSettings(ctx, s.nodeID, settings)
}

// HealthCheck reports whether the underlying store is reachable.
func (s *SettingsService) HealthCheck(ctx context.Context) error {
	return s.store.HealthCheck(ctx)
}
