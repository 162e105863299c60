// Package catalog is the model-metadata source for the planner: a set of
// built-in architecture cards plus an optional operator-supplied file that
// extends or overrides them.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"pland/pkg/types"
)

// builtin covers the architectures the console registers most often. Shapes
// are first-order (params/hidden/layers); that is all the memory model needs.
var builtin = []types.ModelCard{
	{ID: "llama-3.1-8b", Name: "Llama 3.1 8B Instruct", Shape: types.ModelShape{ParamsBillions: 8, HiddenSize: 4096, NumLayers: 32}, MaxContextTokens: 131072},
	{ID: "llama-3.1-70b", Name: "Llama 3.1 70B Instruct", Shape: types.ModelShape{ParamsBillions: 70, HiddenSize: 8192, NumLayers: 80}, MaxContextTokens: 131072},
	{ID: "llama-3.2-3b", Name: "Llama 3.2 3B Instruct", Shape: types.ModelShape{ParamsBillions: 3.2, HiddenSize: 3072, NumLayers: 28}, MaxContextTokens: 131072},
	{ID: "qwen2.5-7b", Name: "Qwen2.5 7B Instruct", Shape: types.ModelShape{ParamsBillions: 7.6, HiddenSize: 3584, NumLayers: 28}, MaxContextTokens: 32768},
	{ID: "qwen2.5-32b", Name: "Qwen2.5 32B Instruct", Shape: types.ModelShape{ParamsBillions: 32.8, HiddenSize: 5120, NumLayers: 64}, MaxContextTokens: 32768},
	{ID: "qwen2.5-72b", Name: "Qwen2.5 72B Instruct", Shape: types.ModelShape{ParamsBillions: 72.7, HiddenSize: 8192, NumLayers: 80}, MaxContextTokens: 32768},
	{ID: "mistral-7b", Name: "Mistral 7B Instruct v0.3", Shape: types.ModelShape{ParamsBillions: 7.2, HiddenSize: 4096, NumLayers: 32}, MaxContextTokens: 32768},
	{ID: "mixtral-8x7b", Name: "Mixtral 8x7B Instruct", Shape: types.ModelShape{ParamsBillions: 46.7, HiddenSize: 4096, NumLayers: 32}, MaxContextTokens: 32768},
	{ID: "phi-3.5-mini", Name: "Phi 3.5 Mini Instruct", Shape: types.ModelShape{ParamsBillions: 3.8, HiddenSize: 3072, NumLayers: 32}, MaxContextTokens: 131072},
	{ID: "deepseek-r1-distill-32b", Name: "DeepSeek R1 Distill Qwen 32B", Shape: types.ModelShape{ParamsBillions: 32.8, HiddenSize: 5120, NumLayers: 64}, MaxContextTokens: 131072},
}

// Catalog holds model cards keyed by id.
type Catalog struct {
	cards []types.ModelCard
	byID  map[string]types.ModelCard
}

// Builtin returns a catalog holding only the built-in cards.
func Builtin() *Catalog { return newCatalog(builtin, nil) }

// Load reads extra cards from a yaml/json file (by extension) and merges them
// over the built-ins: a file card with a built-in id replaces the built-in.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("empty catalog path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var extra []types.ModelCard
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &extra); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &extra); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	for i, c := range extra {
		if c.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: missing id", i)
		}
		if c.Shape.ParamsBillions <= 0 || c.Shape.HiddenSize <= 0 || c.Shape.NumLayers <= 0 {
			return nil, fmt.Errorf("catalog entry %q: shape fields must be positive", c.ID)
		}
	}
	return newCatalog(builtin, extra), nil
}

func newCatalog(base, extra []types.ModelCard) *Catalog {
	byID := make(map[string]types.ModelCard, len(base)+len(extra))
	for _, c := range base {
		byID[c.ID] = c
	}
	for _, c := range extra {
		byID[c.ID] = c
	}
	cards := make([]types.ModelCard, 0, len(byID))
	for _, c := range byID {
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return &Catalog{cards: cards, byID: byID}
}

// Cards returns all cards sorted by id.
func (c *Catalog) Cards() []types.ModelCard {
	return append([]types.ModelCard(nil), c.cards...)
}

// Lookup returns the card for id.
func (c *Catalog) Lookup(id string) (types.ModelCard, bool) {
	card, ok := c.byID[id]
	return card, ok
}

// Len returns the number of cards.
func (c *Catalog) Len() int { return len(c.cards) }
