// Package main provides the Chainrun API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/chainrun/chainrun/pkg/engine"
	"github.com/chainrun/chainrun/pkg/eventbus"
	"github.com/chainrun/chainrun/pkg/persistence"
	"github.com/chainrun/chainrun/pkg/services"
	"github.com/chainrun/chainrun/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	eng := engine.New(a.persistence, a.eventBus, engine.WithLogger(a.logger))

	workflowService := services.NewWorkflow(a.persistence)
	runService := services.NewRun(a.persistence, a.eventBus, eng)
	scheduleService := services.NewSchedule(a.persistence)

	handlers := web.NewAPIHandlers(workflowService, runService, scheduleService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Chainrun API")
	})

	app.Get("/health", handlers.HealthCheck)
	app.Get("/connectors", handlers.GetConnectors)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Post("/import", handlers.ImportWorkflowYAML)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/yaml", handlers.ExportWorkflowYAML)

	// Run endpoints:
	w.Post("/:id/runs", handlers.StartRun)
	w.Post("/:id/runs/range", handlers.StartSubRun)
	w.Get("/:id/runs", handlers.GetWorkflowRuns)

	r := app.Group("/runs")
	r.Get("/:id", handlers.GetRun)
	r.Post("/:id/cancel", handlers.CancelRun)
	r.Post("/:id/components/:componentId/retry", handlers.RetryComponent)

	s := app.Group("/schedules")
	s.Get("/", handlers.GetSchedules)
	s.Post("/", handlers.CreateSchedule)
	s.Delete("/:id", handlers.DeleteSchedule)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
