// Package chart reconciles the heterogeneous, independently-timestamped
// data of one run (actual price series, per-model predictions, trade
// records, equity curves) into aligned, chart-ready structures. All
// functions are pure, synchronous transforms over already-fetched data.
package chart

import (
	"sort"
	"time"

	"quantboard/internal/domain"
)

// keyLayout is the shared minute granularity every series is keyed on.
// Lexicographic order on this layout equals chronological order.
const keyLayout = "2006-01-02 15:04"

// TimeKey formats a timestamp to the canonical timeline key.
func TimeKey(t time.Time) string {
	return t.Format(keyLayout)
}

// BuildTimeline derives the canonical timeline. A non-empty price
// series is authoritative: its dates are used in their original order,
// without collapsing duplicates. Otherwise the timeline is the
// deduplicated, sorted set of record timestamps. Both empty means an
// empty timeline, and every downstream structure degenerates to an
// empty chart.
func BuildTimeline(prices []domain.PricePoint, records []domain.Record) []string {
	if len(prices) > 0 {
		keys := make([]string, len(prices))
		for i := range prices {
			keys[i] = TimeKey(prices[i].Date.Time)
		}
		return keys
	}

	if len(records) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(records))
	for i := range records {
		set[TimeKey(records[i].Timestamp.Time)] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
