package internal

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	httphandlers "github.com/gridstatus/internal-analytics/internal/http"
)

// apiCORSConfig is the CORS setup for the dashboard API. The dashboard is
// internal tooling, so same-company origins are enough.
var apiCORSConfig = cors.Config{
	AllowMethods: "GET,POST,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization",
}

// MountRoutes mounts all application routes.
func MountRoutes(app *fiber.App, h *httphandlers.Handler) {
	app.Get("/healthz", h.HealthAction)

	api := app.Group("/api", cors.New(apiCORSConfig))
	api.Get("/pages/stats", h.PageStatsAction)
	api.Get("/pages/timeseries", h.PageTimeseriesAction)
	api.Get("/referrers/trending", h.TrendingReferrersAction)
	api.Get("/users/active", h.ActiveUsersAction)
}
