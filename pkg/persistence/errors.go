// Package persistence stores the node settings of scripting panels.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrSettingsNotFound indicates no settings were saved for the node yet.
	ErrSettingsNotFound = errors.New("settings not found")

	// ErrInvalidNodeID indicates a node id that cannot be used as a storage key.
	ErrInvalidNodeID = errors.New("invalid node id")
)

// SettingsError wraps settings errors with the operation and node.
type SettingsError struct {
	Op     string // Operation being performed (e.g., "Load", "Save")
	NodeID string
	Err    error
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("%s operation failed for settings of node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *SettingsError) Unwrap() error {
	return e.Err
}

func (e *SettingsError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewSettingsError(op, nodeID string, err error) *SettingsError {
	return &SettingsError{Op: op, NodeID: nodeID, Err: err}
}

// IsSettingsNotFound checks if an error indicates missing settings.
func IsSettingsNotFound(err error) bool {
	return errors.Is(err, ErrSettingsNotFound)
}
