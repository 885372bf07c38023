package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Style is the body style a catalog entry is tagged with.
type Style string

const (
	StyleSedan Style = "Sedan"
	StyleSUV   Style = "SUV"
	StyleWagon Style = "Wagon"
)

// StyleFromIndex maps a questionnaire style answer (0-2) to a Style.
// Index 3 means "no preference" and is handled by the caller.
func StyleFromIndex(i int) (Style, bool) {
	switch i {
	case 0:
		return StyleSedan, true
	case 1:
		return StyleSUV, true
	case 2:
		return StyleWagon, true
	}
	return "", false
}

// WeightProfile holds the per-question scoring weights for one model.
// DailyDistance and Usage are indexed by the single-choice answer (0-2),
// Features by the multi-select feature index (0-5).
type WeightProfile struct {
	DailyDistance []int `json:"daily_distance"`
	Usage         []int `json:"usage"`
	Features      []int `json:"features"`
	Style         Style `json:"style"`
}

// Entry is one scorable model in the catalog.
type Entry struct {
	ID      string        `json:"id"`
	Profile WeightProfile `json:"profile"`
}

// Catalog is the immutable, insertion-ordered set of models. It is loaded
// once at startup and safe for unsynchronized concurrent reads.
type Catalog struct {
	entries []Entry
	byID    map[string]int
}

// New validates the entries and builds a catalog preserving their order.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one entry")
	}

	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has an empty id", i)
		}
		if _, exists := byID[e.ID]; exists {
			return nil, fmt.Errorf("duplicate catalog entry id %q", e.ID)
		}
		if len(e.Profile.DailyDistance) != 3 {
			return nil, fmt.Errorf("entry %q: daily_distance must have 3 weights, got %d", e.ID, len(e.Profile.DailyDistance))
		}
		if len(e.Profile.Usage) != 3 {
			return nil, fmt.Errorf("entry %q: usage must have 3 weights, got %d", e.ID, len(e.Profile.Usage))
		}
		if len(e.Profile.Features) != 6 {
			return nil, fmt.Errorf("entry %q: features must have 6 weights, got %d", e.ID, len(e.Profile.Features))
		}
		switch e.Profile.Style {
		case StyleSedan, StyleSUV, StyleWagon:
		default:
			return nil, fmt.Errorf("entry %q: unknown style %q", e.ID, e.Profile.Style)
		}
		byID[e.ID] = i
	}

	return &Catalog{entries: entries, byID: byID}, nil
}

// Load reads the catalog from a JSON file. The file holds an array, so the
// on-disk order is the catalog order used for ranking tie-breaks.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	return New(entries)
}

// Entries returns the models in catalog order. Callers must not mutate the
// returned slice.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Get looks up a model by id.
func (c *Catalog) Get(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

func (c *Catalog) Len() int {
	return len(c.entries)
}
