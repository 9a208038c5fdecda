package engine

import (
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/crowdinsight/crowdinsight/reader"
)

// Range is an inclusive numeric [Min, Max] bound.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Normalize collapses an inverted range to [Min, Min]. A min greater than
// max is treated as a degenerate-but-valid request, never rejected.
func (r Range) Normalize() Range {
	if r.Min > r.Max {
		r.Max = r.Min
	}
	return r
}

// Contains reports whether v falls within the inclusive range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Ranges holds the three numeric range filters.
type Ranges struct {
	Pledged Range `json:"pledged"`
	Goal    Range `json:"goal"`
	Raised  Range `json:"raised"`
}

// FilterState is one request's complete filter selection. Empty selection
// sets collapse to their "all" sentinel; the sentinel is mutually
// exclusive with specific selections within the same set.
type FilterState struct {
	Search        string    `json:"search"`
	Categories    []string  `json:"categories"`
	Subcategories []string  `json:"subcategories"`
	Countries     []string  `json:"countries"`
	States        []string  `json:"states"`
	Date          DateRange `json:"date"`
	Ranges        *Ranges   `json:"ranges,omitempty"`
}

// Normalize collapses empty selections to sentinels, drops sentinels that
// accompany specific selections, and fixes inverted ranges.
func (f FilterState) Normalize() FilterState {
	f.Categories = normalizeSelection(f.Categories, AllCategories)
	f.Subcategories = normalizeSelection(f.Subcategories, AllSubcategories)
	f.Countries = normalizeSelection(f.Countries, AllCountries)
	f.States = normalizeSelection(f.States, AllStates)
	if f.Date == "" {
		f.Date = RangeAllTime
	}
	if f.Ranges != nil {
		r := *f.Ranges
		r.Pledged = r.Pledged.Normalize()
		r.Goal = r.Goal.Normalize()
		r.Raised = r.Raised.Normalize()
		f.Ranges = &r
	}
	return f
}

// normalizeSelection collapses an empty (or sentinel-only) selection to
// the sentinel and removes a sentinel mixed in with specific values.
func normalizeSelection(values []string, sentinel string) []string {
	specific := make([]string, 0, len(values))
	for _, v := range values {
		if v != sentinel && v != "" {
			specific = append(specific, v)
		}
	}
	if len(specific) == 0 {
		return []string{sentinel}
	}
	return specific
}

// isAll reports whether the selection equals the "all" sentinel.
func isAll(values []string, sentinel string) bool {
	return len(values) == 0 || (len(values) == 1 && values[0] == sentinel)
}

// clause is one independently skippable filter rule.
type clause struct {
	name  string
	match func(row map[string]interface{}) bool
}

// Predicate is a compiled conjunction of named filter clauses.
//
// The zero Predicate matches every row.
type Predicate struct {
	clauses []clause
}

// Matches reports whether the row passes every clause.
func (p Predicate) Matches(row map[string]interface{}) bool {
	for _, c := range p.clauses {
		if !c.match(row) {
			return false
		}
	}
	return true
}

// ClauseNames returns the names of the active clauses, mainly for logging
// and tests.
func (p Predicate) ClauseNames() []string {
	names := make([]string, len(p.clauses))
	for i, c := range p.clauses {
		names[i] = c.name
	}
	return names
}

// BuildPredicate compiles a filter state into a predicate over dataset
// rows. Rules whose columns are missing from the schema are skipped with a
// warning while all other rules still apply.
func BuildPredicate(schema *reader.Schema, filters FilterState, anchor time.Time, logger log.Logger) Predicate {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	filters = filters.Normalize()

	var p Predicate

	if term := strings.TrimSpace(filters.Search); term != "" {
		cols := make([]string, 0, len(searchColumns))
		for _, col := range searchColumns {
			if schema.Has(col) {
				cols = append(cols, col)
			}
		}
		if len(cols) == 0 {
			level.Warn(logger).Log("msg", "skipping search filter, no searchable columns present")
		} else {
			needle := strings.ToLower(term)
			p.clauses = append(p.clauses, clause{name: "search", match: func(row map[string]interface{}) bool {
				for _, col := range cols {
					if s, ok := fieldString(row, col); ok && strings.Contains(strings.ToLower(s), needle) {
						return true
					}
				}
				return false
			}})
		}
	}

	p.addMembership(schema, logger, "categories", ColCategory, filters.Categories, AllCategories, false)
	p.addMembership(schema, logger, "subcategories", ColSubcategory, filters.Subcategories, AllSubcategories, false)
	p.addMembership(schema, logger, "countries", ColCountry, filters.Countries, AllCountries, false)
	p.addMembership(schema, logger, "states", ColState, filters.States, AllStates, true)

	if filters.Ranges != nil {
		p.addRange(schema, logger, "pledged", ColPledged, filters.Ranges.Pledged)
		p.addRange(schema, logger, "goal", ColGoal, filters.Ranges.Goal)
		p.addRange(schema, logger, "raised", ColRaised, filters.Ranges.Raised)
	}

	if start, ok := WindowStart(filters.Date, anchor); ok {
		if !schema.Has(ColLaunched) {
			level.Warn(logger).Log("msg", "skipping date filter, column missing", "column", ColLaunched)
		} else {
			end := endOfDay(anchor)
			p.clauses = append(p.clauses, clause{name: "date", match: func(row map[string]interface{}) bool {
				t, ok := fieldTime(row, ColLaunched)
				if !ok {
					return false
				}
				return !t.Before(start) && !t.After(end)
			}})
		}
	}

	return p
}

// addMembership appends an exact (or case-insensitive) membership clause
// unless the selection is the "all" sentinel or the column is absent.
func (p *Predicate) addMembership(schema *reader.Schema, logger log.Logger, name, col string, values []string, sentinel string, foldCase bool) {
	if isAll(values, sentinel) {
		return
	}
	if !schema.Has(col) {
		level.Warn(logger).Log("msg", "skipping facet filter, column missing", "filter", name, "column", col)
		return
	}

	set := make(map[string]bool, len(values))
	for _, v := range values {
		if foldCase {
			v = strings.ToLower(v)
		}
		set[v] = true
	}

	p.clauses = append(p.clauses, clause{name: name, match: func(row map[string]interface{}) bool {
		s, ok := fieldString(row, col)
		if !ok {
			return false
		}
		if foldCase {
			s = strings.ToLower(s)
		}
		return set[s]
	}})
}

// addRange appends an inclusive numeric range clause unless the column is
// absent.
func (p *Predicate) addRange(schema *reader.Schema, logger log.Logger, name, col string, r Range) {
	if !schema.Has(col) {
		level.Warn(logger).Log("msg", "skipping range filter, column missing", "filter", name, "column", col)
		return
	}
	r = r.Normalize()
	p.clauses = append(p.clauses, clause{name: name, match: func(row map[string]interface{}) bool {
		v, ok := fieldFloat(row, col)
		if !ok {
			return false
		}
		return r.Contains(v)
	}})
}
