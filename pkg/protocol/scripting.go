// Package protocol defines the interfaces between the scripting panel and its
// host: the scripting service RPC, the initial data service and the settings
// service.
package protocol

import (
	"context"
	"encoding/json"

	"github.com/dukex/scriptpanel/pkg/models"
)

// Scripting service methods.
const (
	MethodRunScript                 = "runScript"
	MethodRunInExistingSession      = "runInExistingSession"
	MethodKillSession               = "killSession"
	MethodStartInteractive          = "startInteractive"
	MethodUpdateExecutableSelection = "updateExecutableSelection"
	MethodGetExecutableOptionsList  = "getExecutableOptionsList"
	MethodSendLastConsoleOutput     = "sendLastConsoleOutput"
	MethodGetLanguageServerConfig   = "getLanguageServerConfig"
)

// Events emitted by the scripting service.
const (
	EventExecutionFinished = "python-execution-finished"
	EventConsoleOutput     = "console-output"
)

// EventHandler receives the raw JSON payload of a host event.
type EventHandler func(ctx context.Context, payload json.RawMessage) error

// ScriptingService is the host side of the scripting panel. Calls are
// string-named with JSON serializable arguments; results that a call does not
// produce are reported later through events.
type ScriptingService interface {
	SendToService(ctx context.Context, method string, args ...any) (json.RawMessage, error)
	RegisterEventHandler(event string, handler EventHandler)
}

// InitialDataService provides the data fetched once when the panel loads.
type InitialDataService interface {
	GetInitialData(ctx context.Context) (models.InitialData, error)
}

// SettingsService persists the node settings.
type SettingsService interface {
	GetInitialSettings(ctx context.Context) (models.NodeSettings, error)
	SaveSettings(ctx context.Context, settings models.NodeSettings) error
}
