// Package main provides the Cadenza API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/cadenzahq/cadenza/pkg/enrollment"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger     *slog.Logger
	store      persistence.Persistence
	enrollment *enrollment.Engine
	registry   *registry.Registry
	deps       protocol.Deps
	validate   *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	engine *enrollment.Engine,
	registry *registry.Registry,
	deps protocol.Deps,
) *API {
	return &API{
		logger:     logger,
		store:      store,
		enrollment: engine,
		registry:   registry,
		deps:       deps,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.store, a.enrollment, a.registry, a.deps, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cadenza API")
	})

	s := app.Group("/sequences")
	s.Get("/", handlers.GetSequences)
	s.Post("/:id/enrollments", handlers.EnrollContact)
	s.Post("/:id/enrollments/bulk", handlers.EnrollAudience)

	app.Post("/enrollments/:id/stop", handlers.StopEnrollment)

	app.Get("/nodes", handlers.GetNodeTypes)
	app.Post("/nodes/:type/execute", handlers.ExecuteNode)
	app.Get("/tokens", handlers.GetTokens)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
