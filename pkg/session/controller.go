package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/scriptpanel/pkg/backend"
	"github.com/dukex/scriptpanel/pkg/console"
	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/protocol"
)

const (
	// RunningUnsupportedWarning is written once at load when an input port
	// lacks data.
	RunningUnsupportedWarning = "Missing input data. Connect all input ports and execute preceding nodes to enable script execution."

	missingExecutableFormat = "Flow variable \"%s\" is missing, therefore no Python executable could be started"
	changedExecutableFormat = "Changed python executable to %s"
)

// Controller issues session commands and keeps the state in step with them.
// At most one run is active at a time.
type Controller struct {
	state   *State
	client  *backend.Client
	console console.Console
	logger  *slog.Logger

	runningSupportedOnce sync.Once
}

func NewController(state *State, client *backend.Client, out console.Console, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		state:   state,
		client:  client,
		console: out,
		logger:  logger.With("module", "session_controller"),
	}
}

func (c *Controller) State() *State {
	return c.state
}

// RunAll runs the whole script. The status is RUNNING_ALL when RunAll
// returns; the result arrives later as an execution finished event.
func (c *Controller) RunAll(ctx context.Context, script string) error {
	return c.run(ctx, "runAll", models.SessionStatusRunningAll, protocol.MethodRunScript, script, c.client.RunScript)
}

// RunSelection runs selected text in the existing session. The host starts
// a session when none is alive.
func (c *Controller) RunSelection(ctx context.Context, selection string) error {
	if selection == "" {
		return ErrEmptySelection
	}

	return c.run(ctx, "runSelection", models.SessionStatusRunningSelected,
		protocol.MethodRunInExistingSession, selection, c.client.RunInExistingSession)
}

func (c *Controller) run(
	ctx context.Context,
	op string,
	status models.SessionStatus,
	method string,
	code string,
	send func(context.Context, string) error,
) error {
	generation, err := c.state.beginRun(status)
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Starting run", "op", op, "generation", generation)

	if err := send(protocol.ContextWithGeneration(ctx, generation), code); err != nil {
		// no finished event will follow
		c.state.abortRun(generation)

		return &CommandError{Op: op, Method: method, Err: err}
	}

	return nil
}

// ToggleRunAll starts a full run when idle and cancels a full run in
// progress.
func (c *Controller) ToggleRunAll(ctx context.Context, script string) error {
	if c.state.Snapshot().Status == models.SessionStatusRunningAll {
		return c.Cancel(ctx)
	}

	return c.RunAll(ctx, script)
}

// ToggleRunSelection starts a selection run when idle and cancels a
// selection run in progress.
func (c *Controller) ToggleRunSelection(ctx context.Context, selection string) error {
	if c.state.Snapshot().Status == models.SessionStatusRunningSelected {
		return c.Cancel(ctx)
	}

	return c.RunSelection(ctx, selection)
}

// Cancel kills the running session and starts a fresh one. Results of the
// cancelled run are discarded when they arrive.
func (c *Controller) Cancel(ctx context.Context) error {
	if !c.state.Snapshot().Status.IsRunning() {
		return ErrNotRunning
	}

	c.logger.InfoContext(ctx, "Cancelling run")

	_, err := c.KillSession(ctx)
	c.state.setLastActionResult(models.LastActionCancelled)

	if err != nil {
		return err
	}

	return c.StartSession(ctx)
}

// PrintVariable prints the string representation of a workspace variable to
// the console.
func (c *Controller) PrintVariable(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyVariableName
	}

	ctx = protocol.ContextWithGeneration(ctx, c.state.Snapshot().Generation)
	if err := c.client.RunInExistingSession(ctx, PrintStatement(name)); err != nil {
		return &CommandError{Op: "printVariable", Method: protocol.MethodRunInExistingSession, Err: err}
	}

	return nil
}

// PrintStatement builds the python statement that prints a variable below a
// header line.
func PrintStatement(name string) string {
	return fmt.Sprintf("print(\"\"\">>> print(%s)\n\"\"\" + str(%s))", name, name)
}

// KillSession kills the backend session. The workspace is emptied and the
// session idles whatever the outcome. It reports whether the kill succeeded.
func (c *Controller) KillSession(ctx context.Context) (bool, error) {
	info, err := c.client.KillSession(ctx)

	c.state.teardown(true)

	if err != nil {
		return false, &CommandError{Op: "killSession", Method: protocol.MethodKillSession, Err: err}
	}

	if info.Status == models.KillSessionError {
		c.console.Writeln(models.ConsoleLine{Error: info.Description})

		return false, nil
	}

	return true, nil
}

// Reset kills the session and, on success, forgets the view preview.
func (c *Controller) Reset(ctx context.Context) error {
	ok, err := c.KillSession(ctx)
	if err != nil {
		c.state.setLastActionResult(models.LastActionResetFailed)

		return err
	}

	if !ok {
		c.state.setLastActionResult(models.LastActionResetFailed)

		return nil
	}

	c.state.resetView()
	c.state.setLastActionResult(models.LastActionReset)

	return nil
}

// UpdateExecutableSelection switches the backend executable. Any session
// state of the previous executable is dropped.
func (c *Controller) UpdateExecutableSelection(ctx context.Context, id string) error {
	err := c.client.UpdateExecutableSelection(ctx, id)

	c.state.teardown(true)
	c.state.setExecutable(models.ExecutableSelection{ID: id})

	if err != nil {
		return &CommandError{Op: "updateExecutableSelection", Method: protocol.MethodUpdateExecutableSelection, Err: err}
	}

	return nil
}

// InitExecutableSelection applies the persisted executable and checks that
// it is still available. A missing executable disables running and is
// reported on the console.
func (c *Controller) InitExecutableSelection(ctx context.Context, settings models.NodeSettings) error {
	if err := c.UpdateExecutableSelection(ctx, settings.ExecutableSelection); err != nil {
		return err
	}

	_, err := c.validateExecutable(ctx, settings.ExecutableSelection)

	return err
}

// SelectExecutable is the interactive variant of UpdateExecutableSelection:
// it revalidates the choice and announces it on the console.
func (c *Controller) SelectExecutable(ctx context.Context, id string) error {
	if err := c.UpdateExecutableSelection(ctx, id); err != nil {
		return err
	}

	option, err := c.validateExecutable(ctx, id)
	if err != nil {
		return err
	}

	if option.PythonExecutable != "" {
		c.console.Writeln(models.ConsoleLine{Text: fmt.Sprintf(changedExecutableFormat, option.PythonExecutable)})
	}

	return nil
}

// validateExecutable marks the selection missing when id is not among the
// available options. The default executable is always available.
func (c *Controller) validateExecutable(ctx context.Context, id string) (models.ExecutableOption, error) {
	options, err := c.client.GetExecutableOptionsList(ctx, id)
	if err != nil {
		return models.ExecutableOption{}, &CommandError{
			Op:     "validateExecutable",
			Method: protocol.MethodGetExecutableOptionsList,
			Err:    err,
		}
	}

	option, ok := models.FindExecutableOption(options, id)
	missing := (!ok && id != models.DefaultExecutableID) || option.Type == models.ExecutableOptionMissingVar

	c.state.setExecutable(models.ExecutableSelection{ID: id, IsMissing: missing})

	if missing {
		c.logger.WarnContext(ctx, "Selected executable is missing", "executable_id", id)
		c.console.Writeln(models.ConsoleLine{Error: fmt.Sprintf(missingExecutableFormat, id)})

		return models.ExecutableOption{}, nil
	}

	return option, nil
}

// DeriveRunningSupported reports whether every input port is optional or
// connected to executed data.
func DeriveRunningSupported(connections []models.InputConnectionInfo) bool {
	for _, conn := range connections {
		if !conn.IsOptional && conn.Status != models.PortConnectionOK {
			return false
		}
	}

	return true
}

// InitRunningSupported derives whether running is supported and warns on the
// console when it is not. Only the first call has an effect.
func (c *Controller) InitRunningSupported(connections []models.InputConnectionInfo) bool {
	c.runningSupportedOnce.Do(func() {
		supported := DeriveRunningSupported(connections)
		c.state.SetRunningSupported(supported)

		if !supported {
			c.console.Writeln(models.ConsoleLine{Warning: RunningUnsupportedWarning})
		}
	})

	return c.state.Snapshot().RunningSupported
}

func (c *Controller) IsRunningSupported() bool {
	return c.state.Snapshot().RunningSupported
}

// StartSession starts an interactive session ahead of the first run.
func (c *Controller) StartSession(ctx context.Context) error {
	if err := c.client.StartInteractive(ctx); err != nil {
		return &CommandError{Op: "startSession", Method: protocol.MethodStartInteractive, Err: err}
	}

	return nil
}

// ReplayLastConsoleOutput asks the host to resend the console output of the
// previous panel instance.
func (c *Controller) ReplayLastConsoleOutput(ctx context.Context) error {
	if err := c.client.SendLastConsoleOutput(ctx); err != nil {
		return &CommandError{Op: "replayLastConsoleOutput", Method: protocol.MethodSendLastConsoleOutput, Err: err}
	}

	return nil
}

// LanguageServerConfig returns the language server configuration for the
// selected executable.
func (c *Controller) LanguageServerConfig(ctx context.Context) (json.RawMessage, error) {
	id := c.state.Snapshot().ExecutableSelection.ID

	config, err := c.client.GetLanguageServerConfig(ctx, id)
	if err != nil {
		return nil, &CommandError{Op: "languageServerConfig", Method: protocol.MethodGetLanguageServerConfig, Err: err}
	}

	return config, nil
}
