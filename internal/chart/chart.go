package chart

import (
	"sort"

	"quantboard/internal/domain"
)

// Data is a complete chartable structure: canonical timeline, legend,
// aligned series, and marker annotations. A run with no price data and
// no records yields the zero Data: empty chart, not an error.
type Data struct {
	Timeline []string `json:"timeline"`
	Legend   []string `json:"legend"`
	Series   []Series `json:"series"`
	Markers  []Marker `json:"markers,omitempty"`
}

// ModelOrder is the deduplicated union, in first-seen order, of every
// model name across metrics, equity curves, and records. It is the
// single source of truth for color and legend ordering and must be
// recomputed whenever any of its inputs change. Map-sourced inputs
// contribute keys in sorted order (Go maps are unordered); records
// contribute in delivery order.
func ModelOrder(metrics map[string]domain.Metrics, equity map[string][]domain.EquityPoint, records []domain.Record) []string {
	var order []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}

	for _, k := range sortedKeys(metrics) {
		add(k)
	}
	for _, k := range sortedKeys(equity) {
		add(k)
	}
	for i := range records {
		add(records[i].ModelType)
	}
	return order
}

// Build assembles the price chart: the actual-price line, one
// prediction line per model that has records, and buy/sell markers.
func Build(prices []domain.PricePoint, records []domain.Record, order []string) Data {
	timeline := BuildTimeline(prices, records)
	if len(timeline) == 0 {
		return Data{}
	}

	lookup := PriceLookup(prices, records)

	series := []Series{{
		Name:  ActualSeriesName,
		Color: actualColor,
		Data:  project(timeline, lookup),
	}}
	legend := []string{ActualSeriesName}

	for _, model := range order {
		pred := predictionLookup(records, model)
		if pred == nil {
			// No records for this model: no line at all, not an
			// empty one.
			continue
		}
		series = append(series, Series{
			Name:  model,
			Color: ColorFor(model, order),
			Data:  project(timeline, pred),
		})
		legend = append(legend, model)
	}

	return Data{
		Timeline: timeline,
		Legend:   legend,
		Series:   series,
		Markers:  AnnotateMarkers(timeline, records, lookup),
	}
}

// BuildEquity aligns the per-model equity curves onto a timeline
// derived from the union of their dates, sharing legend order and
// colors with the price chart.
func BuildEquity(equity map[string][]domain.EquityPoint, order []string) Data {
	set := make(map[string]struct{})
	for _, points := range equity {
		for i := range points {
			set[TimeKey(points[i].Date.Time)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return Data{}
	}
	timeline := make([]string, 0, len(set))
	for k := range set {
		timeline = append(timeline, k)
	}
	sort.Strings(timeline)

	var series []Series
	var legend []string
	for _, model := range order {
		points := equity[model]
		if len(points) == 0 {
			continue
		}
		lookup := make(map[string]float64, len(points))
		for i := range points {
			lookup[TimeKey(points[i].Date.Time)] = points[i].Equity
		}
		series = append(series, Series{
			Name:  model,
			Color: ColorFor(model, order),
			Data:  project(timeline, lookup),
		})
		legend = append(legend, model)
	}

	return Data{Timeline: timeline, Legend: legend, Series: series}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
