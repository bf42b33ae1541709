package chart

import (
	"quantboard/internal/domain"
)

// MarkerKind distinguishes the exact-price circle from the offset
// label pin.
type MarkerKind string

// Marker kinds.
const (
	MarkerCircle MarkerKind = "circle"
	MarkerPin    MarkerKind = "pin"
)

// Buy/sell marker colors (CN market convention: red buys, green sells).
const (
	buyColor  = "#ee3f4d"
	sellColor = "#20a162"
)

// pinOffset shifts label pins off the price line: +2% above for buys,
// -2% below for sells.
const pinOffset = 0.02

// Marker is one buy/sell annotation resolved onto the canonical
// timeline.
type Marker struct {
	Kind  MarkerKind `json:"kind"`
	Key   string     `json:"key"`
	Index int        `json:"index"`
	Price float64    `json:"price"`
	Color string     `json:"color"`
	Text  string     `json:"text,omitempty"`
	Model string     `json:"model,omitempty"`
}

// AnnotateMarkers derives buy/sell markers from trade records. A record
// whose timestamp key is absent from the timeline, or whose price
// cannot be resolved from the record or the price lookup, is silently
// dropped: records and the timeline source may come from different
// upstream queries, so this is best-effort. HOLD records produce
// nothing. The result lists all circles first, then all pins; that is
// draw layering only.
func AnnotateMarkers(timeline []string, records []domain.Record, prices map[string]float64) []Marker {
	index := make(map[string]int, len(timeline))
	for i, key := range timeline {
		index[key] = i
	}

	var circles, pins []Marker
	for i := range records {
		r := &records[i]
		if r.Action != domain.ActionBuy && r.Action != domain.ActionSell {
			continue
		}
		key := TimeKey(r.Timestamp.Time)
		pos, ok := index[key]
		if !ok {
			continue
		}
		price := r.ActualPrice
		if price == 0 {
			price, ok = prices[key]
			if !ok {
				continue
			}
		}

		color, text, offset := buyColor, "B", 1+pinOffset
		if r.Action == domain.ActionSell {
			color, text, offset = sellColor, "S", 1-pinOffset
		}

		circles = append(circles, Marker{
			Kind:  MarkerCircle,
			Key:   key,
			Index: pos,
			Price: price,
			Color: color,
			Model: r.ModelType,
		})
		pins = append(pins, Marker{
			Kind:  MarkerPin,
			Key:   key,
			Index: pos,
			Price: price * offset,
			Color: color,
			Text:  text,
			Model: r.ModelType,
		})
	}

	return append(circles, pins...)
}
