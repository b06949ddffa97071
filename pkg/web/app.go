package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApp registers the panel routes. The host event route exists only when
// the handlers have a publisher.
func NewApp(handlers *APIHandlers, registry *prometheus.Registry) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := handlers.panel.HealthCheck(c.Context())

			return ok
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Script Panel API")
	})

	app.Get("/state", handlers.GetState)

	s := app.Group("/session")
	s.Post("/run-all", handlers.RunAll)
	s.Post("/run-selection", handlers.RunSelection)
	s.Post("/cancel", handlers.Cancel)
	s.Post("/kill", handlers.KillSession)
	s.Post("/reset", handlers.Reset)

	app.Post("/workspace/:name/print", handlers.PrintVariable)

	app.Put("/executable", handlers.SelectExecutable)
	app.Get("/executables", handlers.GetExecutables)

	app.Post("/completions", handlers.Complete)
	app.Post("/initial-data/reload", handlers.ReloadInitialData)

	app.Get("/console", handlers.GetConsole)
	app.Delete("/console", handlers.ClearConsole)

	app.Get("/settings", handlers.GetSettings)
	app.Put("/settings", handlers.UpdateSettings)

	app.Get("/language-server-config", handlers.GetLanguageServerConfig)

	if handlers.publisher != nil {
		app.Post("/host/events", handlers.ReceiveHostEvent)
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	app.Get("/health", handlers.HealthCheck)

	return app
}
