package http

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gridstatus/internal-analytics/internal/filters"
	"github.com/gridstatus/internal-analytics/internal/insights"
	"github.com/gridstatus/internal-analytics/internal/metrics"
	"github.com/gridstatus/internal-analytics/internal/queries"
)

// TimeseriesPoint is one hourly slot of the page timeseries, with the
// comparison series aligned by hour-of-day rather than absolute time.
type TimeseriesPoint struct {
	Hour           int     `json:"hour"`
	Views          float64 `json:"views"`
	Cumulative     float64 `json:"cumulative"`
	YesterdayViews float64 `json:"yesterday_views"`
	LastWeekViews  float64 `json:"last_week_views"`
}

// PageTimeseriesResponse is the JSON shape of GET /api/pages/timeseries.
type PageTimeseriesResponse struct {
	Path                  string            `json:"path"`
	Points                []TimeseriesPoint `json:"points"`
	ViewsToday            float64           `json:"views_today"`
	ViewsAtSameTimeYstday float64           `json:"views_same_time_yesterday"`
	ChangeVsSameTime      float64           `json:"change_vs_same_time"`
}

// PageTimeseriesAction returns today's hourly series for a path with
// running totals, aligned against yesterday and the same weekday last
// week.
func (h *Handler) PageTimeseriesAction(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return respondError(c, h.logger, &ValidationError{Msg: "missing required parameter: path"})
	}

	fc := h.filterContext(c)
	loc := fc.Location()
	now := time.Now().In(loc)
	// Midnight in the requester's zone, not UTC midnight.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	days := map[string]time.Time{
		windowToday:     today,
		windowYesterday: today.AddDate(0, 0, -1),
		windowLastWeek:  today.AddDate(0, 0, -7),
	}

	named, err := h.buildTimeseriesQueries(fc, path, days)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	rowSets, err := h.insights.ExecuteAll(c.UserContext(), named)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(buildTimeseriesResponse(path, rowSets, fc, now))
}

func (h *Handler) buildTimeseriesQueries(fc filters.Context, path string, days map[string]time.Time) (map[string]insights.Query, error) {
	fragments := queries.FragmentBindings(fc, h.cfg.InternalDomainList())

	named := make(map[string]insights.Query, len(days))
	for name, day := range days {
		text, err := queries.RenderNamed("page_timeseries", fragments.Merge(queries.Bindings{
			"from_date":     queries.Date(day),
			"interval_days": queries.Int(1),
		}))
		if err != nil {
			return nil, err
		}
		named[name] = insights.Query{Text: text, Values: map[string]any{"path": path}}
	}
	return named, nil
}

// decodeTimeseriesRows translates [bucket, views, visitors] tuples into
// hourly points at the boundary.
func decodeTimeseriesRows(rows []insights.Row) []metrics.HourlyPoint {
	decoded := make([]metrics.HourlyPoint, 0, len(rows))
	for _, row := range rows {
		decoded = append(decoded, metrics.HourlyPoint{
			Timestamp: row.Time(0),
			Value:     row.Number(1),
		})
	}
	return decoded
}

func buildTimeseriesResponse(path string, rowSets map[string][]insights.Row, fc filters.Context, now time.Time) PageTimeseriesResponse {
	loc := fc.Location()

	todayByHour := metrics.ByHourOfDay(decodeTimeseriesRows(rowSets[windowToday]), loc)
	yesterdayByHour := metrics.ByHourOfDay(decodeTimeseriesRows(rowSets[windowYesterday]), loc)
	lastWeekByHour := metrics.ByHourOfDay(decodeTimeseriesRows(rowSets[windowLastWeek]), loc)

	// Hours come from every series, not just today's, so a slot that was
	// active yesterday but quiet today still carries its comparison value.
	seen := make(map[int]struct{}, len(todayByHour))
	for _, series := range []map[int]float64{todayByHour, yesterdayByHour, lastWeekByHour} {
		for hour := range series {
			seen[hour] = struct{}{}
		}
	}
	hours := make([]int, 0, len(seen))
	for hour := range seen {
		hours = append(hours, hour)
	}
	sort.Ints(hours)

	ordered := make([]float64, len(hours))
	for i, hour := range hours {
		ordered[i] = todayByHour[hour]
	}
	cumulative := metrics.RunningTotal(ordered)

	points := make([]TimeseriesPoint, len(hours))
	var viewsToday float64
	for i, hour := range hours {
		viewsToday += todayByHour[hour]
		points[i] = TimeseriesPoint{
			Hour:           hour,
			Views:          todayByHour[hour],
			Cumulative:     cumulative[i],
			YesterdayViews: yesterdayByHour[hour],
			LastWeekViews:  lastWeekByHour[hour],
		}
	}

	// "Same time of day" comparison: yesterday's activity up to the
	// current hour, position-for-position with today.
	var sameTimeYesterday float64
	for hour := 0; hour <= now.In(loc).Hour(); hour++ {
		sameTimeYesterday += yesterdayByHour[hour]
	}

	return PageTimeseriesResponse{
		Path:                  path,
		Points:                points,
		ViewsToday:            viewsToday,
		ViewsAtSameTimeYstday: sameTimeYesterday,
		ChangeVsSameTime:      metrics.PercentChange(viewsToday, sameTimeYesterday),
	}
}
