// Package metrics merges multi-window analytics result sets and computes
// derived metrics. Everything here is pure computation: no I/O, and every
// numeric edge case is a total function with a documented default.
package metrics

// KeyedRow is one decoded result row: a natural key (page path, referrer
// domain, user email) plus that window's metric values in query order.
type KeyedRow struct {
	Key    string
	Values []float64
}

// Merged maps natural key -> window name -> metric values.
type Merged map[string]map[string][]float64

// MergeByKey joins result rows from multiple named windows by key. The
// join is an outer join over the union of keys: a key present in only one
// window appears in the output with the other windows zero-filled to that
// window's value width, never dropped — "no rows returned" and "zero
// count" are equivalent for these metrics. Within a window the first row
// for a key wins.
func MergeByKey(sets map[string][]KeyedRow) Merged {
	widths := make(map[string]int, len(sets))
	for window, rows := range sets {
		for _, row := range rows {
			if len(row.Values) > widths[window] {
				widths[window] = len(row.Values)
			}
		}
	}

	merged := make(Merged)
	for window, rows := range sets {
		for _, row := range rows {
			perWindow, ok := merged[row.Key]
			if !ok {
				perWindow = make(map[string][]float64, len(sets))
				merged[row.Key] = perWindow
			}
			if _, exists := perWindow[window]; exists {
				continue
			}
			values := make([]float64, widths[window])
			copy(values, row.Values)
			perWindow[window] = values
		}
	}

	// Zero-fill windows that returned no row for a key.
	for _, perWindow := range merged {
		for window := range sets {
			if _, ok := perWindow[window]; !ok {
				perWindow[window] = make([]float64, widths[window])
			}
		}
	}

	return merged
}

// Value returns the idx-th metric for key in window, 0 when absent.
func (m Merged) Value(key, window string, idx int) float64 {
	perWindow, ok := m[key]
	if !ok {
		return 0
	}
	values, ok := perWindow[window]
	if !ok || idx < 0 || idx >= len(values) {
		return 0
	}
	return values[idx]
}
