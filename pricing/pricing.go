// Package pricing provides a static per-model price table used to derive
// turn cost for backends that do not self-report it.
package pricing

import (
	"strings"

	"github.com/loomcode/loom"
)

// Rates holds USD prices per million tokens for one model.
type Rates struct {
	InputPerMTok  float64
	CachedPerMTok float64
	OutputPerMTok float64
}

var _ loom.ModelPricing = Rates{}

// Cost computes the USD cost for the given token counts.
func (r Rates) Cost(inputTokens, cachedTokens, outputTokens int) float64 {
	return float64(inputTokens)*r.InputPerMTok/1e6 +
		float64(cachedTokens)*r.CachedPerMTok/1e6 +
		float64(outputTokens)*r.OutputPerMTok/1e6
}

// Table maps model-name prefixes to rates. Model ids carry version
// suffixes (dates, point releases), so lookup matches the longest known
// prefix.
type Table struct {
	rates map[string]Rates
}

var _ loom.Pricing = (*Table)(nil)

// NewTable creates a table from prefix → rates.
func NewTable(rates map[string]Rates) *Table {
	return &Table{rates: rates}
}

// Lookup returns the price card for model, matching the longest prefix.
func (t *Table) Lookup(model string) (loom.ModelPricing, bool) {
	var best string
	found := false
	for prefix := range t.rates {
		if strings.HasPrefix(model, prefix) && len(prefix) >= len(best) {
			best = prefix
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return t.rates[best], true
}

// Default returns the built-in table for commonly used models.
func Default() *Table {
	return NewTable(map[string]Rates{
		"claude-opus-4":   {InputPerMTok: 15, CachedPerMTok: 1.50, OutputPerMTok: 75},
		"claude-sonnet-4": {InputPerMTok: 3, CachedPerMTok: 0.30, OutputPerMTok: 15},
		"claude-haiku-4":  {InputPerMTok: 1, CachedPerMTok: 0.10, OutputPerMTok: 5},
		"gemini-2.5-pro":  {InputPerMTok: 1.25, CachedPerMTok: 0.31, OutputPerMTok: 10},
		"gemini-2.5-flash": {
			InputPerMTok:  0.30,
			CachedPerMTok: 0.075,
			OutputPerMTok: 2.50,
		},
	})
}
