// Package fake provides an in-process scripting host. It stands in for the
// real host during development and in tests.
package fake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/protocol"
)

const (
	DefaultDelay = 100 * time.Millisecond

	noSessionMessage = "There is no active python session in progress"
	stoppedMessage   = "Stopped execution of python session."
	cancelledMessage = "Script execution was cancelled by user"
)

var (
	ErrUnknownMethod = errors.New("unknown method")
	ErrBadArguments  = errors.New("bad arguments")
)

type consoleOutput struct {
	Text   string `json:"text"`
	Stderr bool   `json:"stderr"`
}

// Host runs scripts on a toy interpreter and reports results through the
// registered event handlers, like a real host would.
type Host struct {
	logger *slog.Logger
	delay  time.Duration

	mu          sync.Mutex
	handlers    map[string]protocol.EventHandler
	session     *interpreter
	cancelRun   context.CancelFunc
	executable  string
	options     []models.ExecutableOption
	initialData models.InitialData
	settings    models.NodeSettings
	lspConfig   json.RawMessage
	lastOutput  []consoleOutput

	// runs execute one at a time
	runMu sync.Mutex
	wg    sync.WaitGroup
}

type Option func(*Host)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) { h.logger = logger }
}

// WithDelay sets how long every run takes before it starts evaluating.
func WithDelay(delay time.Duration) Option {
	return func(h *Host) { h.delay = delay }
}

func WithInitialData(data models.InitialData) Option {
	return func(h *Host) {
		h.initialData = data
		h.options = data.ExecutableOptionsList
	}
}

func WithSettings(settings models.NodeSettings) Option {
	return func(h *Host) { h.settings = settings }
}

// WithLanguageServerConfig sets the raw getLanguageServerConfig result. By
// default the host answers with a JSON encoded empty object.
func WithLanguageServerConfig(raw json.RawMessage) Option {
	return func(h *Host) { h.lspConfig = raw }
}

func NewHost(opts ...Option) *Host {
	h := &Host{
		logger:   slog.Default(),
		delay:    DefaultDelay,
		handlers: make(map[string]protocol.EventHandler),
		settings: models.NodeSettings{Script: "print('Hello World!')\n"},
	}

	for _, opt := range opts {
		opt(h)
	}

	h.logger = h.logger.With("module", "fake_host")

	return h
}

func (h *Host) RegisterEventHandler(event string, handler protocol.EventHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handlers[event] = handler
}

func (h *Host) SendToService(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	h.logger.DebugContext(ctx, "Called host method", "method", method, "args", len(args))

	switch method {
	case protocol.MethodRunScript, protocol.MethodRunInExistingSession:
		script, err := stringArg(method, args)
		if err != nil {
			return nil, err
		}

		generation, _ := protocol.GenerationFromContext(ctx)
		h.start(script, method == protocol.MethodRunScript, generation)

		return nil, nil
	case protocol.MethodKillSession:
		return json.Marshal(h.kill())
	case protocol.MethodStartInteractive:
		h.mu.Lock()
		h.session = newInterpreter()
		h.mu.Unlock()

		return nil, nil
	case protocol.MethodUpdateExecutableSelection:
		id, err := stringArg(method, args)
		if err != nil {
			return nil, err
		}

		h.mu.Lock()
		if id != h.executable {
			h.executable = id
			h.session = nil
		}
		h.mu.Unlock()

		return nil, nil
	case protocol.MethodGetExecutableOptionsList:
		h.mu.Lock()
		options := h.options
		h.mu.Unlock()

		if options == nil {
			options = []models.ExecutableOption{}
		}

		return json.Marshal(options)
	case protocol.MethodGetLanguageServerConfig:
		if h.lspConfig != nil {
			return h.lspConfig, nil
		}

		return json.Marshal("{}")
	case protocol.MethodSendLastConsoleOutput:
		h.mu.Lock()
		outputs := append([]consoleOutput(nil), h.lastOutput...)
		h.mu.Unlock()

		for _, output := range outputs {
			h.emit(ctx, protocol.EventConsoleOutput, output)
		}

		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func (h *Host) kill() models.KillSessionInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session == nil {
		return models.KillSessionInfo{Status: models.KillSessionError, Description: noSessionMessage}
	}

	if h.cancelRun != nil {
		h.cancelRun()
		h.cancelRun = nil
	}

	h.session = nil

	return models.KillSessionInfo{Status: models.KillSessionSuccess, Description: stoppedMessage}
}

func (h *Host) start(script string, newSession bool, generation uint64) {
	ctx, cancel := context.WithCancel(context.Background())

	h.mu.Lock()
	if h.session == nil || newSession {
		h.session = newInterpreter()
	}
	session := h.session
	h.cancelRun = cancel
	h.mu.Unlock()

	h.wg.Add(1)

	go func() {
		defer h.wg.Done()
		defer cancel()

		h.runMu.Lock()
		defer h.runMu.Unlock()

		info, outputs := h.execute(ctx, session, script)
		info.Generation = generation

		ctx = context.WithoutCancel(ctx)
		for _, output := range outputs {
			h.emit(ctx, protocol.EventConsoleOutput, output)
		}

		h.emit(ctx, protocol.EventExecutionFinished, info)
	}()
}

func (h *Host) execute(ctx context.Context, session *interpreter, script string) (models.ExecutionInfo, []consoleOutput) {
	select {
	case <-ctx.Done():
		return models.ExecutionInfo{Status: models.ExecutionStatusCancelled, Description: cancelledMessage}, nil
	case <-time.After(h.delay):
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	output, scriptErr := session.execStatement(script)

	outputs := make([]consoleOutput, 0, len(output))
	for _, text := range output {
		outputs = append(outputs, consoleOutput{Text: text})
	}

	h.lastOutput = outputs

	view := session.view
	info := models.ExecutionInfo{
		Status:       models.ExecutionStatusSuccess,
		Description:  "Execution successful",
		Data:         session.workspace(),
		HasValidView: &view,
	}

	if scriptErr != nil {
		info.Status = models.ExecutionStatusExecutionError
		info.Description = "Execution Error"
		info.Traceback = scriptErr.traceback()
	}

	return info, outputs
}

func (h *Host) emit(ctx context.Context, event string, payload any) {
	h.mu.Lock()
	handler, ok := h.handlers[event]
	h.mu.Unlock()

	if !ok {
		h.logger.WarnContext(ctx, "No handler registered for event", "event", event)

		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to encode event", "event", event, "error", err)

		return
	}

	if err := handler(ctx, raw); err != nil {
		h.logger.ErrorContext(ctx, "Event handler failed", "event", event, "error", err)
	}
}

// Close cancels the running script and waits for it to finish.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.cancelRun != nil {
		h.cancelRun()
	}
	h.mu.Unlock()

	h.wg.Wait()

	return nil
}

func (h *Host) GetInitialData(_ context.Context) (models.InitialData, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.initialData, nil
}

func (h *Host) GetInitialSettings(_ context.Context) (models.NodeSettings, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.settings, nil
}

func (h *Host) SaveSettings(ctx context.Context, settings models.NodeSettings) error {
	h.mu.Lock()
	h.settings = settings
	h.mu.Unlock()

	h.logger.DebugContext(ctx, "Saved settings", "executable_selection", settings.ExecutableSelection)

	return nil
}

func stringArg(method string, args []any) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s expects 1 argument, got %d", ErrBadArguments, method, len(args))
	}

	s, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s expects a string argument", ErrBadArguments, method)
	}

	return s, nil
}
