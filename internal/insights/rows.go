package insights

import (
	"encoding/json"
	"strconv"
	"time"
)

// Row is one loosely-typed result tuple. The service returns schema-less
// positional arrays, so every accessor here is total: out-of-range
// indexes, nulls and unexpected types coerce to the zero value instead of
// panicking. Each query shape should be decoded once at the boundary by a
// typed function built on these accessors.
type Row []any

// Number returns the value at i coerced to float64, 0 when absent or
// non-numeric.
func (r Row) Number(i int) float64 {
	if i < 0 || i >= len(r) {
		return 0
	}
	switch v := r[i].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Int64 returns the value at i truncated to int64, 0 when absent.
func (r Row) Int64(i int) int64 {
	return int64(r.Number(i))
}

// String returns the value at i as a string, "" when absent or not a
// string.
func (r Row) String(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	s, ok := r[i].(string)
	if !ok {
		return ""
	}
	return s
}

// timeLayouts are the timestamp formats the service is known to emit.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time returns the value at i parsed as a timestamp, zero time when
// absent or unparseable.
func (r Row) Time(i int) time.Time {
	s := r.String(i)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
