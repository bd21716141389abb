package metrics

import (
	"math"
	"time"
)

// PercentChange returns the rounded percentage change from previous to
// current. A non-positive baseline yields 0, not an error or infinity:
// showing "0% change" from a zero baseline is the documented dashboard
// convention.
func PercentChange(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return math.Round((current - previous) / previous * 100)
}

// VsAverageChange compares today's value against an average, to one
// decimal place. When the average is zero and today is positive it
// reports the 100 sentinel (a pseudo-infinite increase); when both are
// zero there is no meaningful comparison and it reports nil.
func VsAverageChange(today, avg float64) *float64 {
	if avg == 0 {
		if today > 0 {
			sentinel := 100.0
			return &sentinel
		}
		return nil
	}
	change := math.Round((today-avg)/avg*1000) / 10
	return &change
}

// MovingAverage returns the arithmetic mean of the trailing window of
// values. Division is always by the nominal window length, not the count
// of non-zero periods, so sparse periods pull the average down rather
// than being excluded. A window longer than the series still divides by
// the nominal length.
func MovingAverage(values []float64, window int) float64 {
	if window <= 0 {
		return 0
	}
	start := len(values) - window
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, v := range values[start:] {
		sum += v
	}
	return sum / float64(window)
}

// minTrendActivity is the noise floor: comparisons whose summed activity
// across both windows falls below it are single-user noise, not a trend.
const minTrendActivity = 2

// Trend is one classified window-over-window comparison.
type Trend struct {
	Last     float64
	Previous float64
	Absolute float64
	Percent  *float64
}

// ClassifyTrend compares two consecutive windows. The second return is
// false when the comparison is suppressed: summed activity below the
// noise floor, or one of the low-count patterns (0→1, 1→0, 1→1) that
// must not appear in trend-ranked lists.
func ClassifyTrend(last, previous float64) (Trend, bool) {
	if last+previous < minTrendActivity {
		return Trend{}, false
	}
	if last <= 1 && previous == 1 {
		return Trend{}, false
	}

	t := Trend{
		Last:     last,
		Previous: previous,
		Absolute: last - previous,
	}
	if previous != 0 {
		pct := t.Absolute / previous * 100
		t.Percent = &pct
	}
	return t, true
}

// RunningTotal accumulates an ordered period sequence into a running sum
// carried forward in iteration order.
func RunningTotal(values []float64) []float64 {
	totals := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		totals[i] = sum
	}
	return totals
}

// HourlyPoint is one (timestamp, value) sample of an hourly series.
type HourlyPoint struct {
	Timestamp time.Time
	Value     float64
}

// ByHourOfDay keys a series by hour-of-day in the given location, so two
// series from different absolute dates ("today" vs "same time yesterday")
// can be compared position-for-position. Later samples for the same hour
// win, matching "most recent value for that slot".
func ByHourOfDay(points []HourlyPoint, loc *time.Location) map[int]float64 {
	if loc == nil {
		loc = time.UTC
	}
	byHour := make(map[int]float64, len(points))
	for _, p := range points {
		byHour[p.Timestamp.In(loc).Hour()] = p.Value
	}
	return byHour
}
