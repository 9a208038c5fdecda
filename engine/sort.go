package engine

import (
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/crowdinsight/crowdinsight/reader"
)

// SortOrder names a browse sort preset.
type SortOrder string

const (
	SortPopularity SortOrder = "popularity"
	SortNewest     SortOrder = "newest"
	SortOldest     SortOrder = "oldest"
	SortMostFunded SortOrder = "mostfunded"
	SortMostBacked SortOrder = "mostbacked"
	SortEndDate    SortOrder = "enddate"
)

// sortSpec is the resolved column and direction for a sort order.
type sortSpec struct {
	column     string
	descending bool
}

// resolveSort maps a sort order to a column and direction. Unknown orders
// and orders whose column is missing fall back to the popularity column
// with a warning. The second return value is false when not even the
// fallback column exists, in which case rows keep their scan order.
func resolveSort(schema *reader.Schema, order SortOrder, logger log.Logger) (sortSpec, bool) {
	spec := sortSpec{column: ColPopularity, descending: true}

	switch order {
	case SortPopularity, "":
	case SortNewest:
		spec = sortSpec{column: ColLaunched, descending: true}
	case SortOldest:
		spec = sortSpec{column: ColLaunched, descending: false}
	case SortMostFunded:
		spec = sortSpec{column: ColPledged, descending: true}
	case SortMostBacked:
		spec = sortSpec{column: ColBackers, descending: true}
	case SortEndDate:
		spec = sortSpec{column: ColDeadline, descending: true}
	default:
		level.Warn(logger).Log("msg", "unknown sort order, using popularity", "order", order)
	}

	if !schema.Has(spec.column) {
		if spec.column != ColPopularity && schema.Has(ColPopularity) {
			level.Warn(logger).Log("msg", "sort column missing, falling back to popularity", "column", spec.column)
			return sortSpec{column: ColPopularity, descending: true}, true
		}
		level.Warn(logger).Log("msg", "sort column missing, leaving rows unsorted", "column", spec.column)
		return spec, false
	}

	return spec, true
}

// sortRows orders rows by the spec's column and direction. Null or missing
// values sort last regardless of direction; equal keys keep their relative
// scan order so pagination is deterministic.
func sortRows(rows []map[string]interface{}, spec sortSpec) {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, oki := sortKey(rows[i], spec.column)
		vj, okj := sortKey(rows[j], spec.column)

		// Nulls last.
		if !oki && !okj {
			return false
		}
		if !oki {
			return false
		}
		if !okj {
			return true
		}

		if spec.descending {
			return vi > vj
		}
		return vi < vj
	})
}

// sortKey extracts a comparable numeric key from a row. Timestamps compare
// by epoch, including date strings on the two raw date columns.
func sortKey(row map[string]interface{}, col string) (float64, bool) {
	v, exists := row[col]
	if !exists || v == nil {
		return 0, false
	}
	if t, ok := v.(time.Time); ok {
		return float64(t.UnixMicro()), true
	}
	if f, ok := asFloat64(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if t, ok := asTime(s); ok {
			return float64(t.UnixMicro()), true
		}
	}
	return 0, false
}
