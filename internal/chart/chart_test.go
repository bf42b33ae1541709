package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantboard/internal/domain"
)

func ts(t *testing.T, s string) domain.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02T15:04", s)
	require.NoError(t, err)
	return domain.NewTime(parsed)
}

func fval(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

func TestBuildTimelinePrimarySeriesAuthoritative(t *testing.T) {
	prices := []domain.PricePoint{
		{Date: ts(t, "2024-01-02T00:00"), Close: 11},
		{Date: ts(t, "2024-01-01T00:00"), Close: 10},
		{Date: ts(t, "2024-01-02T00:00"), Close: 11},
	}
	// Duplicates and original order are preserved: the primary series
	// is authoritative.
	timeline := BuildTimeline(prices, nil)
	assert.Equal(t, []string{"2024-01-02 00:00", "2024-01-01 00:00", "2024-01-02 00:00"}, timeline)
}

func TestBuildTimelineRecordFallback(t *testing.T) {
	records := []domain.Record{
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-03T09:31")},
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-01T09:30")},
		{ModelType: "kimi", Timestamp: ts(t, "2024-01-01T09:30")},
		{ModelType: "kimi", Timestamp: ts(t, "2024-01-02T09:30")},
	}
	timeline := BuildTimeline(nil, records)
	assert.Equal(t, []string{"2024-01-01 09:30", "2024-01-02 09:30", "2024-01-03 09:31"}, timeline)
}

func TestBuildTimelineEmptyInputs(t *testing.T) {
	assert.Empty(t, BuildTimeline(nil, nil))

	data := Build(nil, nil, nil)
	assert.Empty(t, data.Timeline)
	assert.Empty(t, data.Legend)
	assert.Empty(t, data.Series)
	assert.Empty(t, data.Markers)
}

func TestActualSeriesLengthMatchesPrimary(t *testing.T) {
	prices := []domain.PricePoint{
		{Date: ts(t, "2024-01-01T00:00"), Close: 10},
		{Date: ts(t, "2024-01-02T00:00"), Close: 11},
		{Date: ts(t, "2024-01-03T00:00"), Close: 12},
	}
	data := Build(prices, nil, nil)
	require.Len(t, data.Series, 1)
	require.Len(t, data.Series[0].Data, 3)
	assert.Equal(t, 10.0, fval(data.Series[0].Data[0]))
	assert.Equal(t, 11.0, fval(data.Series[0].Data[1]))
	assert.Equal(t, 12.0, fval(data.Series[0].Data[2]))
}

func TestPriceBackfillFirstWriteWins(t *testing.T) {
	records := []domain.Record{
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-01T00:00"), ActualPrice: 10},
		{ModelType: "kimi", Timestamp: ts(t, "2024-01-01T00:00"), ActualPrice: 99},
	}
	lookup := PriceLookup(nil, records)
	assert.Equal(t, 10.0, lookup["2024-01-01 00:00"])
}

func TestPriceBackfillOnlyWhenPrimaryEmpty(t *testing.T) {
	prices := []domain.PricePoint{{Date: ts(t, "2024-01-01T00:00"), Close: 10}}
	records := []domain.Record{
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-02T00:00"), ActualPrice: 55},
	}
	lookup := PriceLookup(prices, records)
	assert.Equal(t, 10.0, lookup["2024-01-01 00:00"])
	_, ok := lookup["2024-01-02 00:00"]
	assert.False(t, ok, "records must not backfill when the primary series is present")
}

func TestPredictionLookupLastWriteWins(t *testing.T) {
	records := []domain.Record{
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-01T00:00"), PredictedPrice: 10.5},
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-01T00:00"), PredictedPrice: 10.9},
	}
	lookup := predictionLookup(records, "qwen")
	assert.Equal(t, 10.9, lookup["2024-01-01 00:00"])
}

func TestPredictionGapsAreNil(t *testing.T) {
	prices := []domain.PricePoint{
		{Date: ts(t, "2024-01-01T00:00"), Close: 10},
		{Date: ts(t, "2024-01-02T00:00"), Close: 11},
	}
	records := []domain.Record{
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-02T00:00"), PredictedPrice: 11.5},
	}
	data := Build(prices, records, []string{"qwen"})
	require.Len(t, data.Series, 2)
	qwen := data.Series[1]
	require.Len(t, qwen.Data, 2)
	assert.Nil(t, qwen.Data[0], "unmapped position must be an explicit gap")
	assert.Equal(t, 11.5, fval(qwen.Data[1]))
}

func TestNoSeriesForModelWithoutRecords(t *testing.T) {
	prices := []domain.PricePoint{{Date: ts(t, "2024-01-01T00:00"), Close: 10}}
	data := Build(prices, nil, []string{"qwen", "kimi"})
	require.Len(t, data.Series, 1)
	assert.Equal(t, []string{ActualSeriesName}, data.Legend)
}

func TestColorForIsStableAndIdempotent(t *testing.T) {
	order := []string{"ma20", "linear"}
	first := ColorFor("ma20", order)
	assert.Equal(t, first, ColorFor("ma20", order))
	assert.Equal(t, palette[0], ColorFor("ma20", order))
	assert.Equal(t, palette[1], ColorFor("linear", order))

	// Appending a model never perturbs earlier assignments.
	grown := append(order, "arima")
	assert.Equal(t, first, ColorFor("ma20", grown))
	assert.Equal(t, palette[2], ColorFor("arima", grown))
}

func TestColorForOverrideBeatsPalette(t *testing.T) {
	order := []string{"deepseek", "qwen", "other"}
	assert.Equal(t, "#4D6BFE", ColorFor("deepseek", order))
	assert.Equal(t, "#615CED", ColorFor("qwen", order))
	assert.Equal(t, "#4D6BFE", ColorFor("DeepSeek", order))
	for _, c := range palette {
		assert.NotEqual(t, c, ColorFor("deepseek", order))
	}
}

func TestModelOrderFirstSeenUnion(t *testing.T) {
	metrics := map[string]domain.Metrics{
		"qwen": {TotalReturn: 0.1},
		"kimi": {TotalReturn: 0.2},
	}
	equity := map[string][]domain.EquityPoint{
		"qwen": {{Date: ts(t, "2024-01-01T00:00"), Equity: 100000}},
		"ma20": {{Date: ts(t, "2024-01-01T00:00"), Equity: 100000}},
	}
	records := []domain.Record{
		{ModelType: "zeta", Timestamp: ts(t, "2024-01-01T00:00")},
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-01T00:00")},
	}
	order := ModelOrder(metrics, equity, records)
	assert.Equal(t, []string{"kimi", "qwen", "ma20", "zeta"}, order)
}

func TestAnnotateMarkersSkipsHoldAndUnresolved(t *testing.T) {
	timeline := []string{"2024-01-01 00:00"}
	prices := map[string]float64{"2024-01-01 00:00": 10}
	records := []domain.Record{
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-01T00:00"), Action: domain.ActionHold, ActualPrice: 10},
		{ModelType: "qwen", Timestamp: ts(t, "2024-02-01T00:00"), Action: domain.ActionBuy, ActualPrice: 10},
	}
	markers := AnnotateMarkers(timeline, records, prices)
	assert.Empty(t, markers)
}

func TestAnnotateMarkersPriceFallback(t *testing.T) {
	timeline := []string{"2024-01-01 00:00", "2024-01-02 00:00"}
	prices := map[string]float64{"2024-01-01 00:00": 20}
	records := []domain.Record{
		// No actual price on the record: resolved from the lookup.
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-01T00:00"), Action: domain.ActionSell},
		// No actual price and no lookup entry: dropped.
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-02T00:00"), Action: domain.ActionBuy},
	}
	markers := AnnotateMarkers(timeline, records, prices)
	require.Len(t, markers, 2)
	assert.Equal(t, MarkerCircle, markers[0].Kind)
	assert.Equal(t, 20.0, markers[0].Price)
	assert.Equal(t, MarkerPin, markers[1].Kind)
	assert.InDelta(t, 19.6, markers[1].Price, 1e-9)
	assert.Equal(t, "S", markers[1].Text)
}

func TestAnnotateMarkersCirclesBeforePins(t *testing.T) {
	timeline := []string{"2024-01-01 00:00", "2024-01-02 00:00"}
	records := []domain.Record{
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-01T00:00"), Action: domain.ActionBuy, ActualPrice: 10},
		{ModelType: "qwen", Timestamp: ts(t, "2024-01-02T00:00"), Action: domain.ActionSell, ActualPrice: 12},
	}
	markers := AnnotateMarkers(timeline, records, nil)
	require.Len(t, markers, 4)
	assert.Equal(t, MarkerCircle, markers[0].Kind)
	assert.Equal(t, MarkerCircle, markers[1].Kind)
	assert.Equal(t, MarkerPin, markers[2].Kind)
	assert.Equal(t, MarkerPin, markers[3].Kind)
}

func TestBuildEndToEnd(t *testing.T) {
	prices := []domain.PricePoint{
		{Date: ts(t, "2024-01-01T00:00"), Close: 10},
		{Date: ts(t, "2024-01-02T00:00"), Close: 11},
	}
	records := []domain.Record{
		{
			ModelType:      "qwen",
			Timestamp:      ts(t, "2024-01-01T00:00"),
			Action:         domain.ActionBuy,
			PredictedPrice: 10.5,
			ActualPrice:    10,
		},
	}
	order := ModelOrder(nil, nil, records)
	data := Build(prices, records, order)

	assert.Equal(t, []string{"2024-01-01 00:00", "2024-01-02 00:00"}, data.Timeline)

	require.Len(t, data.Series, 2)
	qwen := data.Series[1]
	assert.Equal(t, "qwen", qwen.Name)
	require.Len(t, qwen.Data, 2)
	assert.Equal(t, 10.5, fval(qwen.Data[0]))
	assert.Nil(t, qwen.Data[1])

	require.Len(t, data.Markers, 2)
	circle, pin := data.Markers[0], data.Markers[1]
	assert.Equal(t, MarkerCircle, circle.Kind)
	assert.Equal(t, 0, circle.Index)
	assert.Equal(t, 10.0, circle.Price)
	assert.Equal(t, MarkerPin, pin.Kind)
	assert.Equal(t, "B", pin.Text)
	assert.InDelta(t, 10.2, pin.Price, 1e-9)
}

func TestBuildEquityAlignsOnUnion(t *testing.T) {
	equity := map[string][]domain.EquityPoint{
		"qwen": {
			{Date: ts(t, "2024-01-01T00:00"), Equity: 100000},
			{Date: ts(t, "2024-01-02T00:00"), Equity: 101000},
		},
		"kimi": {
			{Date: ts(t, "2024-01-02T00:00"), Equity: 99000},
		},
	}
	order := []string{"qwen", "kimi"}
	data := BuildEquity(equity, order)

	assert.Equal(t, []string{"2024-01-01 00:00", "2024-01-02 00:00"}, data.Timeline)
	require.Len(t, data.Series, 2)
	assert.Equal(t, "qwen", data.Series[0].Name)
	assert.Equal(t, 101000.0, fval(data.Series[0].Data[1]))
	assert.Nil(t, data.Series[1].Data[0], "kimi has no point on day one")
	assert.Equal(t, 99000.0, fval(data.Series[1].Data[1]))
}

func TestBuildEquityEmpty(t *testing.T) {
	data := BuildEquity(nil, []string{"qwen"})
	assert.Empty(t, data.Timeline)
	assert.Empty(t, data.Series)
}
