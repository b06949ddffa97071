package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukex/scriptpanel/pkg/backend/fake"
	"github.com/dukex/scriptpanel/pkg/cmd"
	"github.com/dukex/scriptpanel/pkg/eventbus"
	"github.com/dukex/scriptpanel/pkg/initialdata"
	"github.com/dukex/scriptpanel/pkg/log"
	"github.com/dukex/scriptpanel/pkg/metrics"
	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/otelhelper"
	"github.com/dukex/scriptpanel/pkg/persistence"
	"github.com/dukex/scriptpanel/pkg/protocol"
	"github.com/dukex/scriptpanel/pkg/rpc"
	"github.com/dukex/scriptpanel/pkg/services"
	"github.com/dukex/scriptpanel/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

// MockHostURL selects the in-process fake host.
const MockHostURL = "mock"

const shutdownTimeout = 10 * time.Second

var ErrMissingHostURL = errors.New("host url is required")

type Config struct {
	Port         int
	HostURL      string
	EventBus     string
	KafkaBrokers string
	SettingsURL  string
	InitialData  string
	NodeID       string
	Autosave     string
	Tracing      bool
}

// Server runs one panel behind the HTTP API.
type Server struct {
	config  Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics

	panel   *services.Panel
	app     *fiber.App
	closers []func(ctx context.Context) error
}

func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the scripting panel API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "host-url",
				Usage:   "Scripting host RPC endpoint, or 'mock' for the built-in fake host",
				Value:   MockHostURL,
				Sources: cli.EnvVars("HOST_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "settings-url",
				Usage:   "Settings store URL (file://dir, postgres://..., redis://...)",
				Sources: cli.EnvVars("SETTINGS_URL"),
			},
			&cli.StringFlag{
				Name:    "initial-data",
				Usage:   "Initial data JSON file; fetched from the host when empty",
				Sources: cli.EnvVars("INITIAL_DATA"),
			},
			&cli.StringFlag{
				Name:    "node-id",
				Usage:   "Id of the scripting node the panel edits",
				Value:   defaultNodeID,
				Sources: cli.EnvVars("NODE_ID"),
			},
			&cli.StringFlag{
				Name:    "autosave",
				Usage:   "Cron schedule for saving settings, empty disables autosave",
				Sources: cli.EnvVars("AUTOSAVE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP HTTP",
				Sources: cli.EnvVars("TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			config := Config{
				Port:         command.Int("port"),
				HostURL:      command.String("host-url"),
				EventBus:     command.String("event-bus"),
				KafkaBrokers: command.String("kafka-brokers"),
				SettingsURL:  command.String("settings-url"),
				InitialData:  command.String("initial-data"),
				NodeID:       command.String("node-id"),
				Autosave:     command.String("autosave"),
				Tracing:      command.Bool("tracing"),
			}

			tracer := otelhelper.NoopTracer()

			if config.Tracing {
				t, shutdown, err := otelhelper.NewTracer(ctx, "scriptpanel")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}
				defer func() {
					if err := shutdown(ctx); err != nil {
						slog.Error("Failed to shutdown tracer provider", "error", err)
					}
				}()

				tracer = t
			}

			logger := log.WithModule("scriptpanel").With("node_id", config.NodeID)

			server, err := NewServer(ctx, config, logger, tracer)
			if err != nil {
				return err
			}

			return server.Start(ctx)
		},
	}
}

// NewServer wires the host collaborators, loads the panel and builds the
// HTTP app. Resources opened on the way are released by Shutdown.
func NewServer(ctx context.Context, config Config, logger *slog.Logger, tracer trace.Tracer) (*Server, error) {
	if err := persistence.ValidateNodeID(config.NodeID); err != nil {
		return nil, err
	}

	s := &Server{
		config:  config,
		logger:  logger,
		tracer:  tracer,
		metrics: metrics.New(),
	}

	if err := s.setup(ctx); err != nil {
		s.close(ctx)

		return nil, err
	}

	return s, nil
}

func (s *Server) setup(ctx context.Context) error {
	var (
		service     protocol.ScriptingService
		initialData protocol.InitialDataService
		settings    protocol.SettingsService
		publisher   eventbus.EventPublisher
	)

	switch s.config.HostURL {
	case "":
		return ErrMissingHostURL
	case MockHostURL:
		opts := []fake.Option{fake.WithLogger(s.logger)}

		if s.config.InitialData != "" {
			data, err := initialdata.LoadFile(s.config.InitialData)
			if err != nil {
				return err
			}

			opts = append(opts, fake.WithInitialData(data))
		}

		host := fake.NewHost(opts...)
		s.closers = append(s.closers, func(context.Context) error { return host.Close() })

		service, initialData, settings = host, host, host
		s.logger.Info("Using the built-in fake scripting host")
	default:
		bus, err := cmd.NewEventBus(cmd.EventBusConfig{
			Provider: s.config.EventBus,
			Brokers:  s.config.KafkaBrokers,
			NodeID:   s.config.NodeID,
		}, s.logger)
		if err != nil {
			return err
		}

		s.closers = append(s.closers, func(context.Context) error { return bus.Close() })

		transport := rpc.NewTransport(s.config.HostURL, bus, rpc.WithLogger(s.logger))
		if err := bus.Subscribe(ctx); err != nil {
			return fmt.Errorf("failed to subscribe to host events: %w", err)
		}

		service, publisher = transport, bus
		initialData = initialdata.HostService{Service: transport}

		s.logger.Info("Using scripting host", "endpoint", transport.Endpoint(), "event_bus", s.config.EventBus)
	}

	if s.config.InitialData != "" {
		initialData = initialdata.FileService{Path: s.config.InitialData}
	}

	settingsURL := s.config.SettingsURL
	if settingsURL == "" && s.config.HostURL != MockHostURL {
		settingsURL = defaultSettings
	}

	if settingsURL != "" {
		store, err := cmd.NewPersistence(ctx, s.logger, settingsURL)
		if err != nil {
			return err
		}

		s.closers = append(s.closers, store.Close)
		settings = persistence.NewSettingsService(store, s.config.NodeID, models.NodeSettings{})
	}

	panel, err := services.NewPanel(services.PanelConfig{
		Service:     service,
		InitialData: initialData,
		Settings:    settings,
		Logger:      s.logger,
		Tracer:      s.tracer,
		Metrics:     s.metrics,
	})
	if err != nil {
		return err
	}

	if err := panel.Load(ctx); err != nil {
		return fmt.Errorf("failed to load panel: %w", err)
	}

	// registered last so it runs first and saves before the stores close
	s.closers = append(s.closers, panel.Close)

	if s.config.Autosave != "" {
		if err := panel.StartAutosave(s.config.Autosave); err != nil {
			return err
		}
	}

	s.panel = panel

	handlers := web.NewAPIHandlers(panel, validator.New(validator.WithRequiredStructEnabled()), publisher, s.config.NodeID)
	s.app = web.NewApp(handlers, s.metrics.Registry)

	return nil
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Panel() *services.Panel {
	return s.panel
}

// Start serves the API until ctx is done or a termination signal arrives.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)

	go func() {
		errs <- s.app.Listen(":" + strconv.Itoa(s.config.Port))
	}()

	s.logger.Info("Script panel API listening", "port", s.config.Port)

	select {
	case err := <-errs:
		s.close(context.WithoutCancel(ctx))

		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down gracefully...")
	}

	return s.Shutdown(context.WithoutCancel(ctx))
}

// Shutdown stops the HTTP server and releases the panel resources.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var err error
	if s.app != nil {
		err = s.app.ShutdownWithContext(ctx)
	}

	s.close(ctx)

	return err
}

// close runs the closers in reverse order of registration.
func (s *Server) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.logger.ErrorContext(ctx, "Failed to close resource", "error", err)
		}
	}

	s.closers = nil
}
