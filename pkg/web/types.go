// Package web provides the HTTP API of the scripting panel.
package web

import (
	"encoding/json"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/session"
)

// RunAllRequest optionally replaces the script before running it.
type RunAllRequest struct {
	Script *string `json:"script,omitempty"`
}

type RunSelectionRequest struct {
	Selection string `json:"selection" validate:"required"`
}

// SelectExecutableRequest selects an executable. An empty id selects the
// default executable.
type SelectExecutableRequest struct {
	ID string `json:"id"`
}

// CompletionRequest asks for suggestions at a 1-based position of a line.
type CompletionRequest struct {
	Line       string `json:"line"`
	LineNumber int    `json:"lineNumber" validate:"required,min=1"`
	Column     int    `json:"column"     validate:"required,min=1"`
}

type SettingsRequest struct {
	Script              string `json:"script"`
	ExecutableSelection string `json:"executableSelection"`
}

// HostEventRequest is an event pushed by the scripting host.
type HostEventRequest struct {
	Event   string          `json:"event"   validate:"required,oneof=python-execution-finished console-output"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// StateResponse is the session state plus the values the UI derives from it.
type StateResponse struct {
	session.Snapshot

	CanRun      bool   `json:"canRun"`
	Placeholder string `json:"placeholder,omitempty"`
}

func NewStateResponse(snapshot session.Snapshot) StateResponse {
	return StateResponse{
		Snapshot:    snapshot,
		CanRun:      snapshot.CanRun(),
		Placeholder: snapshot.ViewPreview.Placeholder(),
	}
}

type KillResponse struct {
	StateResponse

	Success bool `json:"success"`
}

type SettingsResponse struct {
	models.NodeSettings

	Dirty bool `json:"dirty"`
}
