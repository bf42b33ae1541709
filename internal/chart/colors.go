package chart

import "strings"

// modelColors maps known model identifiers to their fixed brand colors.
// Process-wide read-only data.
var modelColors = map[string]string{
	"deepseek": "#4D6BFE",
	"qwen":     "#615CED",
	"kimi":     "#00B2A9",
}

// palette supplies colors for models without a brand entry, indexed by
// position in the model order.
var palette = []string{
	"#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de",
	"#3ba272", "#fc8452", "#9a60b4", "#ea7ccc",
}

// actualColor is the fixed color of the ground-truth price line.
const actualColor = "#8a8a8a"

// ColorFor assigns a model its chart color: the brand override when the
// identifier is known, otherwise the palette slot at the model's
// position in order, modulo the palette length. Stable for a frozen
// order.
func ColorFor(model string, order []string) string {
	if c, ok := modelColors[strings.ToLower(model)]; ok {
		return c
	}
	pos := 0
	for i := range order {
		if order[i] == model {
			pos = i
			break
		}
	}
	return palette[pos%len(palette)]
}
