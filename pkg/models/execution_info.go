package models

import (
	"errors"
	"fmt"
)

// ExecutionStatus is the status reported by the backend when a run finishes.
type ExecutionStatus string

const (
	ExecutionStatusSuccess        ExecutionStatus = "SUCCESS"
	ExecutionStatusExecutionError ExecutionStatus = "EXECUTION_ERROR"
	ExecutionStatusKnimeError     ExecutionStatus = "KNIME_ERROR"
	ExecutionStatusFatalError     ExecutionStatus = "FATAL_ERROR"
	ExecutionStatusCancelled      ExecutionStatus = "CANCELLED"
)

var ErrUnknownExecutionStatus = errors.New("unknown execution status")

// ExecutionInfo is the payload of the python-execution-finished event as sent
// over the wire. Use Outcome to obtain the typed variant.
type ExecutionInfo struct {
	Status       ExecutionStatus `json:"status"`
	Description  string          `json:"description"`
	Traceback    []string        `json:"traceback,omitempty"`
	Data         Workspace       `json:"data,omitempty"`
	HasValidView *bool           `json:"hasValidView,omitempty"`
	// Generation echoes the session generation the run was issued under.
	// Zero means the host did not report one.
	Generation uint64 `json:"generation,omitempty"`
}

// ExecutionOutcome is the closed set of execution results. Every variant
// carries the workspace and view validity of the finished run.
type ExecutionOutcome interface {
	Status() ExecutionStatus
	Result() ExecutionResult
	isExecutionOutcome()
}

// ExecutionResult is shared by all outcome variants.
type ExecutionResult struct {
	Description  string
	Workspace    Workspace
	HasValidView bool
	Generation   uint64
}

type ExecutionSucceeded struct{ ExecutionResult }

type ExecutionErrored struct {
	ExecutionResult

	Traceback []string
}

type KnimeErrored struct{ ExecutionResult }

type FatalErrored struct{ ExecutionResult }

type ExecutionCancelled struct{ ExecutionResult }

func (o ExecutionSucceeded) Status() ExecutionStatus { return ExecutionStatusSuccess }
func (o ExecutionErrored) Status() ExecutionStatus   { return ExecutionStatusExecutionError }
func (o KnimeErrored) Status() ExecutionStatus       { return ExecutionStatusKnimeError }
func (o FatalErrored) Status() ExecutionStatus       { return ExecutionStatusFatalError }
func (o ExecutionCancelled) Status() ExecutionStatus { return ExecutionStatusCancelled }

func (r ExecutionResult) Result() ExecutionResult { return r }

func (ExecutionSucceeded) isExecutionOutcome() {}
func (ExecutionErrored) isExecutionOutcome()   {}
func (KnimeErrored) isExecutionOutcome()       {}
func (FatalErrored) isExecutionOutcome()       {}
func (ExecutionCancelled) isExecutionOutcome() {}

// Outcome converts the wire payload into its typed variant. A missing data
// field becomes an empty workspace.
func (i ExecutionInfo) Outcome() (ExecutionOutcome, error) {
	workspace := i.Data
	if workspace == nil {
		workspace = Workspace{}
	}

	result := ExecutionResult{
		Description:  i.Description,
		Workspace:    workspace,
		HasValidView: i.HasValidView != nil && *i.HasValidView,
		Generation:   i.Generation,
	}

	switch i.Status {
	case ExecutionStatusSuccess:
		return ExecutionSucceeded{result}, nil
	case ExecutionStatusExecutionError:
		return ExecutionErrored{ExecutionResult: result, Traceback: i.Traceback}, nil
	case ExecutionStatusKnimeError:
		return KnimeErrored{result}, nil
	case ExecutionStatusFatalError:
		return FatalErrored{result}, nil
	case ExecutionStatusCancelled:
		return ExecutionCancelled{result}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExecutionStatus, i.Status)
	}
}

// KillSessionStatus is the result status of a killSession call.
type KillSessionStatus string

const (
	KillSessionSuccess KillSessionStatus = "SUCCESS"
	KillSessionError   KillSessionStatus = "ERROR"
)

// KillSessionInfo is returned by the backend for killSession.
type KillSessionInfo struct {
	Status      KillSessionStatus `json:"status"`
	Description string            `json:"description"`
}
