// Package models defines the data model of the interactive scripting session.
package models

// SessionStatus is the run state of the interactive session as seen by the panel.
type SessionStatus string

const (
	SessionStatusIdle            SessionStatus = "IDLE"
	SessionStatusRunningAll      SessionStatus = "RUNNING_ALL"
	SessionStatusRunningSelected SessionStatus = "RUNNING_SELECTED"
)

// IsRunning reports whether s is one of the RUNNING_* states.
func (s SessionStatus) IsRunning() bool {
	return s == SessionStatusRunningAll || s == SessionStatusRunningSelected
}

// LastActionResult records the outcome of the most recent run or local action.
type LastActionResult string

const (
	LastActionNone           LastActionResult = ""
	LastActionSuccess        LastActionResult = "SUCCESS"
	LastActionExecutionError LastActionResult = "EXECUTION_ERROR"
	LastActionKnimeError     LastActionResult = "KNIME_ERROR"
	LastActionFatalError     LastActionResult = "FATAL_ERROR"
	LastActionCancelled      LastActionResult = "CANCELLED"
	LastActionReset          LastActionResult = "RESET"
	LastActionResetFailed    LastActionResult = "RESET_FAILED"
)

// ExecutableSelection identifies the active backend execution environment.
type ExecutableSelection struct {
	ID        string `json:"id"`
	IsMissing bool   `json:"isMissing"`
}

// WorkspaceVariable is one variable visible in the remote interpreter.
type WorkspaceVariable struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Workspace is an ordered snapshot of the interpreter variables.
type Workspace []WorkspaceVariable

// ViewPreviewStatus describes the state of the output view preview.
type ViewPreviewStatus struct {
	HasValidView   bool `json:"hasValidView"`
	IsExecutedOnce bool `json:"isExecutedOnce"`
}

const (
	// ViewPlaceholderNotExecuted is shown before the script ran for the first time.
	ViewPlaceholderNotExecuted = "Execute the script and assign a view to the knio.output_view variable."
	// ViewPlaceholderNoView is shown when the script ran but produced no view.
	ViewPlaceholderNoView = "The script did not produce a view."
)

// Placeholder returns the text to show instead of the preview, or "" when a
// valid view is available.
func (v ViewPreviewStatus) Placeholder() string {
	switch {
	case v.HasValidView:
		return ""
	case v.IsExecutedOnce:
		return ViewPlaceholderNoView
	default:
		return ViewPlaceholderNotExecuted
	}
}
