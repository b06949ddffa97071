package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/scriptpanel/pkg/console"
	"github.com/dukex/scriptpanel/pkg/metrics"
	"github.com/dukex/scriptpanel/pkg/models"
)

// Reconciler applies execution finished events to the session state.
type Reconciler struct {
	state   *State
	console console.Console
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewReconciler(state *State, out console.Console, logger *slog.Logger, m *metrics.Metrics) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		state:   state,
		console: out,
		logger:  logger.With("module", "reconciler"),
		metrics: m,
	}
}

// Handle reconciles one finished execution. Every known outcome returns the
// session to idle. Events from a superseded run are dropped. An unknown
// status still idles the session and is reported as an error.
func (r *Reconciler) Handle(ctx context.Context, info models.ExecutionInfo) error {
	outcome, err := info.Outcome()
	if err != nil {
		r.logger.ErrorContext(ctx, "Execution finished with unknown status", "status", info.Status)
		r.state.forceIdle()

		return err
	}

	// stale results are rejected under the state lock and write nothing
	if !r.state.applyOutcome(outcome) {
		r.discard(ctx, outcome, r.state.Snapshot().Generation)

		return nil
	}

	if text, ok := ConsoleText(outcome); ok {
		r.console.Writeln(models.ConsoleLine{Error: text})
	}

	result := outcome.Result()

	if r.metrics != nil {
		r.metrics.Executions.WithLabelValues(string(outcome.Status())).Inc()
	}

	r.logger.DebugContext(ctx, "Execution finished",
		"status", outcome.Status(),
		"variables", len(result.Workspace),
		"has_valid_view", result.HasValidView,
	)

	return nil
}

func (r *Reconciler) discard(ctx context.Context, outcome models.ExecutionOutcome, current uint64) {
	if r.metrics != nil {
		r.metrics.StaleEvents.Inc()
	}

	r.logger.InfoContext(ctx, "Discarding stale execution result",
		"status", outcome.Status(),
		"generation", outcome.Result().Generation,
		"current_generation", current,
	)
}

// HandleEvent decodes a python-execution-finished payload and reconciles it.
func (r *Reconciler) HandleEvent(ctx context.Context, payload json.RawMessage) error {
	var info models.ExecutionInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return fmt.Errorf("failed to decode execution info: %w", err)
	}

	return r.Handle(ctx, info)
}

// ConsoleText returns the error text an outcome writes to the console.
// Successful and cancelled runs write nothing.
func ConsoleText(outcome models.ExecutionOutcome) (string, bool) {
	switch o := outcome.(type) {
	case models.ExecutionErrored:
		if len(o.Traceback) == 0 {
			return o.Description, true
		}

		return o.Description + "\n" + strings.Join(o.Traceback, "\n"), true
	case models.KnimeErrored:
		return o.Description, true
	case models.FatalErrored:
		return o.Description, true
	default:
		return "", false
	}
}

// ConsoleOutput is the payload of the console-output event.
type ConsoleOutput struct {
	Text   string `json:"text"`
	Stderr bool   `json:"stderr"`
}

// NewConsoleOutputHandler forwards console-output events to out. Text on
// stderr is written as an error line.
func NewConsoleOutputHandler(out console.Console) func(context.Context, json.RawMessage) error {
	return func(_ context.Context, payload json.RawMessage) error {
		var output ConsoleOutput
		if err := json.Unmarshal(payload, &output); err != nil {
			return fmt.Errorf("failed to decode console output: %w", err)
		}

		if output.Stderr {
			out.Writeln(models.ConsoleLine{Error: output.Text})
		} else {
			out.Writeln(models.ConsoleLine{Text: output.Text})
		}

		return nil
	}
}
