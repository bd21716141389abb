// Package http holds the dashboard's route handlers. Every data-bearing
// handler follows the same shape: build a filter context from the request,
// render the queries it needs, fan them out against the analytics service,
// and merge the rows into derived metrics.
package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/gridstatus/internal-analytics/internal/config"
	"github.com/gridstatus/internal-analytics/internal/filters"
	"github.com/gridstatus/internal-analytics/internal/insights"
)

// Handler bundles the dependencies shared by all route handlers.
type Handler struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *gorm.DB
	insights *insights.Client
}

// NewHandler creates the shared handler.
func NewHandler(cfg *config.Config, logger *slog.Logger, db *gorm.DB, client *insights.Client) *Handler {
	return &Handler{cfg: cfg, logger: logger, db: db, insights: client}
}

// filterContext builds the immutable per-request filter state from query
// parameters. Called once per request; the value is then passed to every
// render and fan-out call so concurrent sub-queries share one snapshot.
func (h *Handler) filterContext(c *fiber.Ctx) filters.Context {
	return filters.NewContext(filters.Params{
		FilterInternal:   c.Query("filterInternal"),
		FilterFree:       c.Query("filterFree"),
		FilterGridstatus: c.Query("filterGridstatus"),
		Timezone:         c.Query("timezone"),
		ExtraTimezones:   h.cfg.ExtraTimezoneList(),
	})
}

// HealthAction reports liveness.
func (h *Handler) HealthAction(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
