// Package metadata loads the filter metadata side-channel: the facet value
// lists, the category to subcategory map, and the absolute bounds of the
// numeric range filters. A missing or malformed descriptor degrades to
// conservative built-in defaults instead of aborting the session.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/crowdinsight/crowdinsight/engine"
)

// DefaultPath is where the descriptor is expected next to the dataset.
const DefaultPath = "filter_metadata.json"

// Bounds are the dataset-wide absolute min/max per numeric range filter.
type Bounds struct {
	Pledged engine.Range `json:"pledged"`
	Goal    engine.Range `json:"goal"`
	Raised  engine.Range `json:"raised"`
}

// Metadata describes the filterable surface of the dataset.
type Metadata struct {
	Categories    []string            `json:"categories"`
	Subcategories []string            `json:"subcategories"`
	Countries     []string            `json:"countries"`
	States        []string            `json:"states"`
	DateRanges    []string            `json:"date_ranges"`
	CategoryMap   map[string][]string `json:"category_subcategory_map"`
	Bounds        Bounds              `json:"min_max_values"`
}

// Defaults returns the conservative built-in metadata used when the
// descriptor is absent or unreadable.
func Defaults() *Metadata {
	return &Metadata{
		Categories: []string{engine.AllCategories},
		Countries:  []string{engine.AllCountries},
		States:     []string{engine.AllStates},
		DateRanges: engine.DateRangeNames(),
		CategoryMap: map[string][]string{
			engine.AllCategories: {engine.AllSubcategories},
		},
		Bounds: Bounds{
			Pledged: engine.Range{Min: 0, Max: 1_000},
			Goal:    engine.Range{Min: 0, Max: 10_000},
			Raised:  engine.Range{Min: 0, Max: 500},
		},
	}
}

// Load reads the descriptor from path. Any failure, a missing file, bad
// JSON, or empty sections, falls back to defaults (per section) with a
// warning; Load never fails the session.
func Load(path string, logger log.Logger) *Metadata {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	defaults := Defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		level.Warn(logger).Log("msg", "filter metadata unavailable, using defaults", "path", path, "err", err)
		return defaults
	}

	var loaded document
	if err := json.Unmarshal(raw, &loaded); err != nil {
		level.Warn(logger).Log("msg", "filter metadata malformed, using defaults", "path", path, "err", err)
		return defaults
	}

	merged := loaded.fillDefaults(defaults)
	merged.ensureSentinels()
	return merged
}

// document mirrors Metadata for decoding, with pointer bounds so a
// descriptor that declares a degenerate zero bound is distinguishable
// from one that omits the key entirely.
type document struct {
	Categories    []string            `json:"categories"`
	Subcategories []string            `json:"subcategories"`
	Countries     []string            `json:"countries"`
	States        []string            `json:"states"`
	DateRanges    []string            `json:"date_ranges"`
	CategoryMap   map[string][]string `json:"category_subcategory_map"`
	Bounds        struct {
		Pledged *engine.Range `json:"pledged"`
		Goal    *engine.Range `json:"goal"`
		Raised  *engine.Range `json:"raised"`
	} `json:"min_max_values"`
}

// fillDefaults builds the merged metadata, substituting defaults for any
// section the descriptor left out.
func (d document) fillDefaults(defaults *Metadata) *Metadata {
	m := &Metadata{
		Categories:    d.Categories,
		Subcategories: d.Subcategories,
		Countries:     d.Countries,
		States:        d.States,
		DateRanges:    d.DateRanges,
		CategoryMap:   d.CategoryMap,
		Bounds:        defaults.Bounds,
	}
	if len(m.Categories) == 0 {
		m.Categories = defaults.Categories
	}
	if len(m.Countries) == 0 {
		m.Countries = defaults.Countries
	}
	if len(m.States) == 0 {
		m.States = defaults.States
	}
	if len(m.DateRanges) == 0 {
		m.DateRanges = defaults.DateRanges
	}
	if m.CategoryMap == nil {
		m.CategoryMap = defaults.CategoryMap
	}
	if d.Bounds.Pledged != nil {
		m.Bounds.Pledged = *d.Bounds.Pledged
	}
	if d.Bounds.Goal != nil {
		m.Bounds.Goal = *d.Bounds.Goal
	}
	if d.Bounds.Raised != nil {
		m.Bounds.Raised = *d.Bounds.Raised
	}
	return m
}

// ensureSentinels guarantees the "all" entries exist and that every known
// subcategory is reachable under the All Categories key.
func (m *Metadata) ensureSentinels() {
	if _, ok := m.CategoryMap[engine.AllCategories]; !ok {
		m.CategoryMap[engine.AllCategories] = []string{engine.AllSubcategories}
	}

	all := m.CategoryMap[engine.AllCategories]
	seen := make(map[string]bool, len(all))
	for _, s := range all {
		seen[s] = true
	}
	if !seen[engine.AllSubcategories] {
		all = append([]string{engine.AllSubcategories}, all...)
		seen[engine.AllSubcategories] = true
	}
	for _, s := range m.Subcategories {
		if !seen[s] {
			all = append(all, s)
			seen[s] = true
		}
	}
	// Keep the sentinel first, the rest alphabetical.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i] == engine.AllSubcategories {
			return all[j] != engine.AllSubcategories
		}
		if all[j] == engine.AllSubcategories {
			return false
		}
		return all[i] < all[j]
	})
	m.CategoryMap[engine.AllCategories] = all
}

// SubcategoriesFor returns the subcategory options for a category
// selection (the All Categories list when no single category applies).
func (m *Metadata) SubcategoriesFor(category string) []string {
	if subs, ok := m.CategoryMap[category]; ok {
		return subs
	}
	return m.CategoryMap[engine.AllCategories]
}

// bound returns the absolute bounds for a range key.
func (b Bounds) bound(key string) (engine.Range, error) {
	switch key {
	case "pledged":
		return b.Pledged, nil
	case "goal":
		return b.Goal, nil
	case "raised":
		return b.Raised, nil
	default:
		return engine.Range{}, fmt.Errorf("unknown range %q", key)
	}
}

// ClampRange clamps a submitted range into the absolute bounds for key,
// collapsing an inverted result to [min, min].
func (m *Metadata) ClampRange(key string, r engine.Range) engine.Range {
	abs, err := m.Bounds.bound(key)
	if err != nil {
		return r.Normalize()
	}
	clamp := func(v float64) float64 {
		if v < abs.Min {
			return abs.Min
		}
		if v > abs.Max {
			return abs.Max
		}
		return v
	}
	out := engine.Range{Min: clamp(r.Min), Max: clamp(r.Max)}
	return out.Normalize()
}

// ClampRanges applies ClampRange to all three numeric filters.
func (m *Metadata) ClampRanges(r engine.Ranges) engine.Ranges {
	return engine.Ranges{
		Pledged: m.ClampRange("pledged", r.Pledged),
		Goal:    m.ClampRange("goal", r.Goal),
		Raised:  m.ClampRange("raised", r.Raised),
	}
}

// DefaultFilters builds the unrestricted filter state seeded with the
// absolute range bounds.
func (m *Metadata) DefaultFilters() engine.FilterState {
	return engine.FilterState{
		Categories:    []string{engine.AllCategories},
		Subcategories: []string{engine.AllSubcategories},
		Countries:     []string{engine.AllCountries},
		States:        []string{engine.AllStates},
		Date:          engine.RangeAllTime,
		Ranges: &engine.Ranges{
			Pledged: m.Bounds.Pledged,
			Goal:    m.Bounds.Goal,
			Raised:  m.Bounds.Raised,
		},
	}
}
