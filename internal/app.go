// Package internal wires the application together.
package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/gridstatus/internal-analytics/internal/config"
	"github.com/gridstatus/internal-analytics/internal/database"
	httphandlers "github.com/gridstatus/internal-analytics/internal/http"
	"github.com/gridstatus/internal-analytics/internal/insights"
	"github.com/gridstatus/internal-analytics/internal/logging"
)

// Application bundles the process-wide collaborators: config, logger, the
// relational store and the analytics client. All are safe for concurrent
// use; per-request state lives in filters.Context, never here.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	DBManager *database.Manager
	Insights  *insights.Client
	Server    *fiber.App
}

// NewApp creates a fully wired application instance.
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates an application with the provided config.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.NewLogger(cfg)

	dbManager := database.NewManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client := insights.NewClient(insights.Config{
		BaseURL:        cfg.InsightsBaseURL,
		APIKey:         cfg.InsightsAPIKey,
		QueryKind:      cfg.InsightsQueryKind,
		Timeout:        cfg.InsightsTimeout(),
		MaxRetries:     cfg.InsightsMaxRetries,
		RetryBaseDelay: cfg.InsightsRetryBaseDelay(),
	}, logger)

	server := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsProduction(),
	})

	handler := httphandlers.NewHandler(cfg, logger, dbManager.GetConnection(), client)
	MountRoutes(server, handler)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		Insights:  client,
		Server:    server,
	}, nil
}

// Migrate runs database migrations.
func (a *Application) Migrate() error {
	return a.DBManager.Migrate()
}

// Start listens on the configured port, blocking until shutdown.
func (a *Application) Start() error {
	a.Logger.Info("server listening", slog.String("port", a.Config.AppPort))
	return a.Server.Listen(":" + a.Config.AppPort)
}

// Shutdown drains in-flight requests and closes the store.
func (a *Application) Shutdown(ctx context.Context) error {
	if err := a.Server.ShutdownWithContext(ctx); err != nil {
		return err
	}
	return a.DBManager.Close()
}
