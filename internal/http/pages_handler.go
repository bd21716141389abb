package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gridstatus/internal-analytics/internal/filters"
	"github.com/gridstatus/internal-analytics/internal/insights"
	"github.com/gridstatus/internal-analytics/internal/metrics"
	"github.com/gridstatus/internal-analytics/internal/queries"
)

// Window names for the page stats fan-out.
const (
	windowToday     = "today"
	windowYesterday = "yesterday"
	windowLast7     = "last7"
	windowLast30    = "last30"
	windowLastWeek  = "lastweek"
)

// WindowStats is the raw per-window slice of a page's metrics.
type WindowStats struct {
	Views    float64 `json:"views"`
	Visitors float64 `json:"visitors"`
}

// PageStatsResponse is the JSON shape of GET /api/pages/stats.
type PageStatsResponse struct {
	Path                      string                 `json:"path"`
	Windows                   map[string]WindowStats `json:"windows"`
	ViewsChangeVsYesterday    float64                `json:"views_change_vs_yesterday"`
	VisitorsChangeVsYesterday float64                `json:"visitors_change_vs_yesterday"`
	ViewsVs7DayAverage        *float64               `json:"views_vs_7day_average"`
}

// PageStatsAction renders and fans out the four per-window stats queries
// for one page path and derives period-over-period metrics from the
// merged rows.
func (h *Handler) PageStatsAction(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return respondError(c, h.logger, &ValidationError{Msg: "missing required parameter: path"})
	}

	fc := h.filterContext(c)
	loc := fc.Location()
	now := time.Now().In(loc)
	// Midnight in the requester's zone, not UTC midnight.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	windows := map[string][2]time.Time{
		windowToday:     {today, today},
		windowYesterday: {today.AddDate(0, 0, -1), today.AddDate(0, 0, -1)},
		windowLast7:     {today.AddDate(0, 0, -6), today},
		windowLast30:    {today.AddDate(0, 0, -29), today},
	}

	named, err := h.buildPageStatsQueries(fc, path, windows)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	rowSets, err := h.insights.ExecuteAll(c.UserContext(), named)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(buildPageStatsResponse(path, rowSets))
}

func (h *Handler) buildPageStatsQueries(fc filters.Context, path string, windows map[string][2]time.Time) (map[string]insights.Query, error) {
	fragments := queries.FragmentBindings(fc, h.cfg.InternalDomainList())

	named := make(map[string]insights.Query, len(windows))
	for name, span := range windows {
		text, err := queries.RenderNamed("page_stats", fragments.Merge(queries.Bindings{
			"from_date": queries.Date(span[0]),
			"to_date":   queries.Date(span[1]),
		}))
		if err != nil {
			return nil, err
		}
		named[name] = insights.Query{Text: text, Values: map[string]any{"path": path}}
	}
	return named, nil
}

// decodePageStatRows translates the loosely-typed [path, views, visitors]
// tuples into keyed rows at the boundary, so positional access happens in
// exactly one place per query shape.
func decodePageStatRows(rows []insights.Row) []metrics.KeyedRow {
	decoded := make([]metrics.KeyedRow, 0, len(rows))
	for _, row := range rows {
		decoded = append(decoded, metrics.KeyedRow{
			Key:    row.String(0),
			Values: []float64{row.Number(1), row.Number(2)},
		})
	}
	return decoded
}

func buildPageStatsResponse(path string, rowSets map[string][]insights.Row) PageStatsResponse {
	sets := make(map[string][]metrics.KeyedRow, len(rowSets))
	for window, rows := range rowSets {
		sets[window] = decodePageStatRows(rows)
	}
	merged := metrics.MergeByKey(sets)

	windowStats := make(map[string]WindowStats, len(rowSets))
	for window := range rowSets {
		windowStats[window] = WindowStats{
			Views:    merged.Value(path, window, 0),
			Visitors: merged.Value(path, window, 1),
		}
	}

	todayViews := merged.Value(path, windowToday, 0)
	yesterdayViews := merged.Value(path, windowYesterday, 0)
	todayVisitors := merged.Value(path, windowToday, 1)
	yesterdayVisitors := merged.Value(path, windowYesterday, 1)
	dailyAvg7 := merged.Value(path, windowLast7, 0) / 7

	return PageStatsResponse{
		Path:                      path,
		Windows:                   windowStats,
		ViewsChangeVsYesterday:    metrics.PercentChange(todayViews, yesterdayViews),
		VisitorsChangeVsYesterday: metrics.PercentChange(todayVisitors, yesterdayVisitors),
		ViewsVs7DayAverage:        metrics.VsAverageChange(todayViews, dailyAvg7),
	}
}
