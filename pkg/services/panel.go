package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/scriptpanel/pkg/backend"
	"github.com/dukex/scriptpanel/pkg/completion"
	"github.com/dukex/scriptpanel/pkg/console"
	"github.com/dukex/scriptpanel/pkg/metrics"
	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/otelhelper"
	"github.com/dukex/scriptpanel/pkg/protocol"
	"github.com/dukex/scriptpanel/pkg/session"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const autosaveTimeout = 10 * time.Second

var (
	ErrMissingScriptingService   = errors.New("scripting service is required")
	ErrMissingInitialDataService = errors.New("initial data service is required")
	ErrMissingSettingsService    = errors.New("settings service is required")
	ErrAutosaveRunning           = errors.New("autosave is already running")
)

// PanelConfig holds the collaborators of a panel. Logger, Tracer and Metrics
// are optional.
type PanelConfig struct {
	Service         protocol.ScriptingService
	InitialData     protocol.InitialDataService
	Settings        protocol.SettingsService
	Logger          *slog.Logger
	Tracer          trace.Tracer
	Metrics         *metrics.Metrics
	ConsoleCapacity int
}

// Panel is one open scripting panel: the session state, the console and the
// completion engine, initialised from the host on Load.
type Panel struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics

	service         protocol.ScriptingService
	initialDataSvc  protocol.InitialDataService
	settingsService protocol.SettingsService

	client     *backend.Client
	state      *session.State
	controller *session.Controller
	reconciler *session.Reconciler
	console    *console.Buffer
	out        console.Console
	completion *completion.Engine

	mu          sync.RWMutex
	loading     bool
	loaded      bool
	initialData models.InitialData
	script      string
	saved       models.NodeSettings

	cronMu sync.Mutex
	cron   *cron.Cron
}

func NewPanel(config PanelConfig) (*Panel, error) {
	if config.Service == nil {
		return nil, ErrMissingScriptingService
	}

	if config.InitialData == nil {
		return nil, ErrMissingInitialDataService
	}

	if config.Settings == nil {
		return nil, ErrMissingSettingsService
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	m := config.Metrics
	if m == nil {
		m = metrics.New()
	}

	buffer := console.NewBuffer(config.ConsoleCapacity)
	out := console.Multi{buffer, console.Logging{Logger: logger.With("module", "console")}}

	client := backend.NewClient(config.Service,
		backend.WithLogger(logger),
		backend.WithTracer(tracer),
		backend.WithMetrics(m),
	)
	state := session.NewState()

	return &Panel{
		logger:          logger.With("module", "panel"),
		tracer:          tracer,
		metrics:         m,
		service:         config.Service,
		initialDataSvc:  config.InitialData,
		settingsService: config.Settings,
		client:          client,
		state:           state,
		controller:      session.NewController(state, client, out, logger),
		reconciler:      session.NewReconciler(state, out, logger, m),
		console:         buffer,
		out:             out,
		completion:      completion.NewEngine(nil),
	}, nil
}

// Load initialises the panel from the host. It must be called once before
// the session is used.
func (p *Panel) Load(ctx context.Context) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "panel.load")
	defer func() {
		otelhelper.SetError(span, err)
		span.End()
	}()

	p.mu.Lock()
	if p.loading || p.loaded {
		p.mu.Unlock()

		return ErrPanelAlreadyLoaded
	}
	p.loading = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.loading = false
		p.loaded = err == nil
		p.mu.Unlock()
	}()

	data, err := p.initialDataSvc.GetInitialData(ctx)
	if err != nil {
		return fmt.Errorf("failed to get initial data: %w", err)
	}

	if !p.controller.InitRunningSupported(data.InputConnectionInfo) {
		p.logger.WarnContext(ctx, "Running is not supported, input data is missing")
	}

	settings, err := p.settingsService.GetInitialSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to get initial settings: %w", err)
	}

	p.mu.Lock()
	p.initialData = data
	p.script = settings.Script
	p.saved = settings
	p.mu.Unlock()

	if err := p.controller.InitExecutableSelection(ctx, settings); err != nil {
		return err
	}

	p.completion.Load(completion.CandidatesFromInitialData(data))

	p.service.RegisterEventHandler(protocol.EventExecutionFinished, p.reconciler.HandleEvent)
	p.service.RegisterEventHandler(protocol.EventConsoleOutput, session.NewConsoleOutputHandler(p.out))

	if err := p.controller.ReplayLastConsoleOutput(ctx); err != nil {
		return err
	}

	if err := p.controller.StartSession(ctx); err != nil {
		return err
	}

	span.SetAttributes(
		attribute.Int(otelhelper.CompletionCandidatesKey, len(p.completion.Candidates())),
		attribute.String(otelhelper.ExecutableIDKey, settings.ExecutableSelection),
		attribute.Bool(otelhelper.RunningSupportedKey, p.controller.IsRunningSupported()),
	)
	p.logger.InfoContext(ctx, "Panel loaded",
		"executable_selection", settings.ExecutableSelection,
		"running_supported", p.controller.IsRunningSupported(),
	)

	return nil
}

// Session returns the session controller of a loaded panel.
func (p *Panel) Session() (*session.Controller, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded {
		return nil, ErrPanelNotLoaded
	}

	return p.controller, nil
}

func (p *Panel) State() *session.State {
	return p.state
}

func (p *Panel) Console() *console.Buffer {
	return p.console
}

func (p *Panel) Metrics() *metrics.Metrics {
	return p.metrics
}

func (p *Panel) InitialData() models.InitialData {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.initialData
}

func (p *Panel) Script() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.script
}

// SetScript replaces the editor script. The change is persisted by the next
// save.
func (p *Panel) SetScript(script string) {
	p.mu.Lock()
	p.script = script
	p.mu.Unlock()
}

// RunAll runs the current script.
func (p *Panel) RunAll(ctx context.Context) error {
	controller, err := p.Session()
	if err != nil {
		return err
	}

	return controller.RunAll(ctx, p.Script())
}

// SelectExecutable switches the executable. The selection is persisted by
// the next save.
func (p *Panel) SelectExecutable(ctx context.Context, id string) error {
	controller, err := p.Session()
	if err != nil {
		return err
	}

	return controller.SelectExecutable(ctx, id)
}

// ExecutableOptions lists the executables the host offers.
func (p *Panel) ExecutableOptions(ctx context.Context) ([]models.ExecutableOption, error) {
	if _, err := p.Session(); err != nil {
		return nil, err
	}

	return p.client.GetExecutableOptionsList(ctx, p.state.Snapshot().ExecutableSelection.ID)
}

// Settings merges the editor script with the current executable selection.
func (p *Panel) Settings() models.NodeSettings {
	p.mu.RLock()
	script := p.script
	p.mu.RUnlock()

	return models.NodeSettings{
		Script:              script,
		ExecutableSelection: p.state.Snapshot().ExecutableSelection.ID,
	}
}

// Dirty reports whether the settings changed since they were last loaded or
// saved.
func (p *Panel) Dirty() bool {
	current := p.Settings()

	p.mu.RLock()
	defer p.mu.RUnlock()

	return current != p.saved
}

func (p *Panel) SaveSettings(ctx context.Context) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "panel.saveSettings")
	defer func() {
		otelhelper.SetError(span, err)
		span.End()
	}()

	if _, err := p.Session(); err != nil {
		return err
	}

	settings := p.Settings()
	span.SetAttributes(attribute.String(otelhelper.ExecutableIDKey, settings.ExecutableSelection))

	if err := p.settingsService.SaveSettings(ctx, settings); err != nil {
		p.logger.ErrorContext(ctx, "Failed to save settings", "error", err)

		return fmt.Errorf("failed to save settings: %w", err)
	}

	p.mu.Lock()
	p.saved = settings
	p.mu.Unlock()

	p.logger.DebugContext(ctx, "Saved settings", "executable_selection", settings.ExecutableSelection)

	return nil
}

// ApplySettings sets the script and the executable selection, then saves.
func (p *Panel) ApplySettings(ctx context.Context, settings models.NodeSettings) error {
	controller, err := p.Session()
	if err != nil {
		return err
	}

	p.SetScript(settings.Script)

	if settings.ExecutableSelection != p.state.Snapshot().ExecutableSelection.ID {
		if err := controller.SelectExecutable(ctx, settings.ExecutableSelection); err != nil {
			return err
		}
	}

	return p.SaveSettings(ctx)
}

// Complete returns the completion suggestions at a position of a line.
// lineNumber and column are 1-based.
func (p *Panel) Complete(line string, lineNumber, column int) []completion.Suggestion {
	p.metrics.CompletionRequests.Inc()

	return p.completion.Suggest(completion.CursorAt(line, lineNumber, column))
}

// ReloadInitialData fetches the initial data again and rebuilds the
// completion candidates from its schema.
func (p *Panel) ReloadInitialData(ctx context.Context) error {
	if _, err := p.Session(); err != nil {
		return err
	}

	data, err := p.initialDataSvc.GetInitialData(ctx)
	if err != nil {
		return fmt.Errorf("failed to get initial data: %w", err)
	}

	p.mu.Lock()
	p.initialData = data
	p.mu.Unlock()

	p.completion.Load(completion.CandidatesFromInitialData(data))
	p.logger.InfoContext(ctx, "Reloaded initial data", "candidates", len(p.completion.Candidates()))

	return nil
}

// StartAutosave saves dirty settings on the given cron schedule.
func (p *Panel) StartAutosave(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return NewValidationError("startAutosave", "invalid_cron", fmt.Sprintf("invalid cron expression '%s': %v", spec, err))
	}

	p.cronMu.Lock()
	defer p.cronMu.Unlock()

	if p.cron != nil {
		return ErrAutosaveRunning
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	entryID, err := c.AddFunc(spec, p.autosave)
	if err != nil {
		return fmt.Errorf("failed to add autosave job: %w", err)
	}

	c.Start()
	p.cron = c

	p.logger.Info("Started autosave", "cron", spec, "entry_id", entryID)

	return nil
}

func (p *Panel) autosave() {
	if !p.Dirty() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()

	if err := p.SaveSettings(ctx); err != nil {
		p.logger.Error("Autosave failed", "error", err)
	}
}

// HealthCheck reports whether the panel is loaded and its settings store is
// reachable.
func (p *Panel) HealthCheck(ctx context.Context) (string, bool) {
	if _, err := p.Session(); err != nil {
		return "panel not loaded", false
	}

	if checker, ok := p.settingsService.(interface{ HealthCheck(context.Context) error }); ok {
		if err := checker.HealthCheck(ctx); err != nil {
			return "settings store unhealthy: " + err.Error(), false
		}
	}

	return "ok", true
}

// Close stops the autosave and saves pending settings.
func (p *Panel) Close(ctx context.Context) error {
	p.cronMu.Lock()
	if p.cron != nil {
		<-p.cron.Stop().Done()
		p.cron = nil
		p.logger.Info("Stopped autosave")
	}
	p.cronMu.Unlock()

	p.mu.RLock()
	loaded := p.loaded
	p.mu.RUnlock()

	if loaded && p.Dirty() {
		return p.SaveSettings(ctx)
	}

	return nil
}
