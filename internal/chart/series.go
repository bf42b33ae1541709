package chart

import (
	"quantboard/internal/domain"
)

// ActualSeriesName is the legend entry for the ground-truth price line.
const ActualSeriesName = "actual"

// Series is one aligned chart line. Data always has exactly one slot
// per timeline position; nil marks an explicit gap, never zero. Gap
// rendering is the renderer's concern, nothing is interpolated here.
type Series struct {
	Name  string     `json:"name"`
	Color string     `json:"color"`
	Data  []*float64 `json:"data"`
}

// PriceLookup builds the key→close lookup for the actual-price line.
// When the primary series is empty it is backfilled from the records'
// actual prices, first write wins.
func PriceLookup(prices []domain.PricePoint, records []domain.Record) map[string]float64 {
	lookup := make(map[string]float64, len(prices))
	for i := range prices {
		lookup[TimeKey(prices[i].Date.Time)] = prices[i].Close
	}
	if len(lookup) > 0 {
		return lookup
	}
	for i := range records {
		key := TimeKey(records[i].Timestamp.Time)
		if _, seen := lookup[key]; !seen {
			lookup[key] = records[i].ActualPrice
		}
	}
	return lookup
}

// predictionLookup builds the key→predicted_price lookup for one
// model's records. Last write wins; keys are expected unique per model.
func predictionLookup(records []domain.Record, model string) map[string]float64 {
	var lookup map[string]float64
	for i := range records {
		if records[i].ModelType != model {
			continue
		}
		if lookup == nil {
			lookup = make(map[string]float64)
		}
		lookup[TimeKey(records[i].Timestamp.Time)] = records[i].PredictedPrice
	}
	return lookup
}

// project maps the canonical timeline through a lookup. Unmapped keys
// stay nil.
func project(timeline []string, lookup map[string]float64) []*float64 {
	data := make([]*float64, len(timeline))
	for i, key := range timeline {
		if v, ok := lookup[key]; ok {
			v := v
			data[i] = &v
		}
	}
	return data
}
