// Package catalog provides the per-backend model catalog used to resolve
// backend-reported model ids into full descriptors.
package catalog

import "github.com/loomcode/loom"

// Static is an in-memory ModelCatalog.
type Static struct {
	models map[loom.Backend][]loom.ModelInfo
}

var _ loom.ModelCatalog = (*Static)(nil)

// New creates a catalog from per-backend model lists.
func New(models map[loom.Backend][]loom.ModelInfo) *Static {
	return &Static{models: models}
}

// Lookup returns the descriptor for id under backend b.
func (c *Static) Lookup(b loom.Backend, id string) (loom.ModelInfo, bool) {
	for _, m := range c.models[b] {
		if m.ID == id {
			return m, true
		}
	}
	return loom.ModelInfo{}, false
}

// Default returns the built-in catalog for known backends.
func Default() *Static {
	return New(map[loom.Backend][]loom.ModelInfo{
		loom.BackendClaude: {
			{ID: "claude-opus-4-5", Label: "Opus 4.5", Backend: loom.BackendClaude},
			{ID: "claude-sonnet-4-5", Label: "Sonnet 4.5", Backend: loom.BackendClaude},
			{ID: "claude-haiku-4-5", Label: "Haiku 4.5", Backend: loom.BackendClaude},
		},
		loom.BackendGemini: {
			{ID: "gemini-2.5-pro", Label: "Gemini 2.5 Pro", Backend: loom.BackendGemini},
			{ID: "gemini-2.5-flash", Label: "Gemini 2.5 Flash", Backend: loom.BackendGemini},
		},
	})
}
