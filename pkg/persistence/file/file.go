// Package file provides file-based persistence for node settings.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/persistence"
)

// Persistence stores the settings of every node in <root>/settings/<node>.json.
type Persistence struct {
	root string
}

// NewPersistence creates a file persistence rooted at root, which may carry
// a file:// prefix.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

func (fp *Persistence) settingsDir() string {
	return filepath.Join(fp.root, "settings")
}

func (fp *Persistence) settingsPath(nodeID string) string {
	return filepath.Join(fp.settingsDir(), nodeID+".json")
}

func (fp *Persistence) LoadSettings(_ context.Context, nodeID string) (models.NodeSettings, error) {
	if err := persistence.ValidateNodeID(nodeID); err != nil {
		return models.NodeSettings{}, persistence.NewSettingsError("Load", nodeID, err)
	}

	body, err := os.ReadFile(fp.settingsPath(nodeID))
	if err != nil {
		if os.IsNotExist(err) {
			return models.NodeSettings{}, persistence.NewSettingsError("Load", nodeID, persistence.ErrSettingsNotFound)
		}

		return models.NodeSettings{}, persistence.NewSettingsError("Load", nodeID, err)
	}

	var settings models.NodeSettings

	err = json.Unmarshal(body, &settings)
	if err != nil {
		return models.NodeSettings{}, persistence.NewSettingsError("Load", nodeID, fmt.Errorf("failed to unmarshal settings: %w", err))
	}

	return settings, nil
}

// SaveSettings writes to a temporary file first so readers never see a
// partial document.
func (fp *Persistence) SaveSettings(_ context.Context, nodeID string, settings models.NodeSettings) error {
	if err := persistence.ValidateNodeID(nodeID); err != nil {
		return persistence.NewSettingsError("Save", nodeID, err)
	}

	err := os.MkdirAll(fp.settingsDir(), 0750)
	if err != nil {
		return persistence.NewSettingsError("Save", nodeID, fmt.Errorf("failed to create settings directory: %w", err))
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return persistence.NewSettingsError("Save", nodeID, err)
	}

	tmp, err := os.CreateTemp(fp.settingsDir(), nodeID+".*.tmp")
	if err != nil {
		return persistence.NewSettingsError("Save", nodeID, err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return persistence.NewSettingsError("Save", nodeID, err)
	}

	err = os.Rename(tmp.Name(), fp.settingsPath(nodeID))
	if err != nil {
		_ = os.Remove(tmp.Name())

		return persistence.NewSettingsError("Save", nodeID, err)
	}

	return nil
}

// HealthCheck checks that the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
