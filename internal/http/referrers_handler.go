package http

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gridstatus/internal-analytics/internal/insights"
	"github.com/gridstatus/internal-analytics/internal/metrics"
	"github.com/gridstatus/internal-analytics/internal/queries"
)

const (
	windowCurrent30  = "current30"
	windowPrevious30 = "previous30"

	trendingQueryLimit = 200
)

// TrendingReferrer is one referrer whose visitor count moved between two
// consecutive 30-day windows.
type TrendingReferrer struct {
	Referrer string   `json:"referrer"`
	Current  float64  `json:"current"`
	Previous float64  `json:"previous"`
	Change   float64  `json:"change"`
	Percent  *float64 `json:"percent"`
}

// TrendingReferrersResponse is the JSON shape of GET /api/referrers/trending.
type TrendingReferrersResponse struct {
	Referrers []TrendingReferrer `json:"referrers"`
}

// TrendingReferrersAction compares referrer visitor counts across two
// consecutive 30-day windows and ranks genuine movers. Low-count noise is
// suppressed by the trend classifier so single-user blips never appear.
func (h *Handler) TrendingReferrersAction(c *fiber.Ctx) error {
	fc := h.filterContext(c)
	now := time.Now().In(fc.Location())
	// Midnight in the requester's zone, not UTC midnight.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, fc.Location())

	fragments := queries.FragmentBindings(fc, h.cfg.InternalDomainList())

	spans := map[string][2]time.Time{
		windowCurrent30:  {today.AddDate(0, 0, -29), today.AddDate(0, 0, 1)},
		windowPrevious30: {today.AddDate(0, 0, -59), today.AddDate(0, 0, -29)},
	}

	named := make(map[string]insights.Query, len(spans))
	for name, span := range spans {
		text, err := queries.RenderNamed("trending_referrers", fragments.Merge(queries.Bindings{
			"from_date": queries.Date(span[0]),
			"to_date":   queries.Date(span[1]),
			"limit":     queries.Int(trendingQueryLimit),
		}))
		if err != nil {
			return respondError(c, h.logger, err)
		}
		named[name] = insights.Query{Text: text}
	}

	rowSets, err := h.insights.ExecuteAll(c.UserContext(), named)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(buildTrendingResponse(rowSets))
}

// decodeReferrerRows translates [referrer, visitors] tuples at the boundary.
func decodeReferrerRows(rows []insights.Row) []metrics.KeyedRow {
	decoded := make([]metrics.KeyedRow, 0, len(rows))
	for _, row := range rows {
		decoded = append(decoded, metrics.KeyedRow{
			Key:    row.String(0),
			Values: []float64{row.Number(1)},
		})
	}
	return decoded
}

func buildTrendingResponse(rowSets map[string][]insights.Row) TrendingReferrersResponse {
	merged := metrics.MergeByKey(map[string][]metrics.KeyedRow{
		windowCurrent30:  decodeReferrerRows(rowSets[windowCurrent30]),
		windowPrevious30: decodeReferrerRows(rowSets[windowPrevious30]),
	})

	referrers := make([]TrendingReferrer, 0, len(merged))
	for key := range merged {
		trend, ok := metrics.ClassifyTrend(
			merged.Value(key, windowCurrent30, 0),
			merged.Value(key, windowPrevious30, 0),
		)
		if !ok {
			continue
		}
		referrers = append(referrers, TrendingReferrer{
			Referrer: key,
			Current:  trend.Last,
			Previous: trend.Previous,
			Change:   trend.Absolute,
			Percent:  trend.Percent,
		})
	}

	sort.Slice(referrers, func(i, j int) bool {
		if referrers[i].Change != referrers[j].Change {
			return referrers[i].Change > referrers[j].Change
		}
		return referrers[i].Referrer < referrers[j].Referrer
	})

	return TrendingReferrersResponse{Referrers: referrers}
}
