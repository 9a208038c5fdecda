package engine

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/crowdinsight/crowdinsight/reader"
)

// DefaultPageSize is the fixed page size of the browsing table.
const DefaultPageSize = 10

// RowSource streams dataset rows. *reader.Dataset implements it; tests use
// in-memory slices.
type RowSource interface {
	Scan(visit func(row map[string]interface{}) error) error
}

// SliceSource adapts an in-memory row slice to RowSource.
type SliceSource []map[string]interface{}

// Scan visits every row in order.
func (s SliceSource) Scan(visit func(row map[string]interface{}) error) error {
	for _, row := range s {
		if err := visit(row); err != nil {
			return err
		}
	}
	return nil
}

// PageResult is one materialized page of a filtered, sorted browse query.
//
// Rows is empty (never nil) when nothing matches; an empty page with
// TotalRows == 0 is the explicit "no results" signal, not an error.
type PageResult struct {
	Rows      []map[string]interface{} `json:"rows"`
	TotalRows int64                    `json:"total_row_count"`
	Page      int                      `json:"clamped_page"`
	PageSize  int                      `json:"page_size"`
}

// TotalPages returns the number of pages the result set spans, at least 1.
func (p *PageResult) TotalPages() int {
	return totalPages(p.TotalRows, p.PageSize)
}

// Empty reports whether no rows matched the query at all.
func (p *PageResult) Empty() bool {
	return p.TotalRows == 0
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage clamps a requested 1-based page number into the valid range
// for the given total. Clamping is idempotent.
func ClampPage(page int, total int64, pageSize int) int {
	last := totalPages(total, pageSize)
	if page < 1 {
		return 1
	}
	if page > last {
		return last
	}
	return page
}

// Execute runs one browse query: filter, sort, count, clamp the requested
// page, and slice exactly one page of rows.
//
// Only rows matching the predicate are materialized; the source itself is
// streamed. Execute is a pure function of its inputs plus the read-only
// dataset.
func Execute(src RowSource, schema *reader.Schema, pred Predicate, order SortOrder, page, pageSize int, logger log.Logger) (*PageResult, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	matched := make([]map[string]interface{}, 0)
	err := src.Scan(func(row map[string]interface{}) error {
		if pred.Matches(row) {
			matched = append(matched, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}

	if spec, ok := resolveSort(schema, order, logger); ok {
		sortRows(matched, spec)
	}

	total := int64(len(matched))
	clamped := ClampPage(page, total, pageSize)

	start := (clamped - 1) * pageSize
	end := start + pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	level.Debug(logger).Log("msg", "browse query executed",
		"total", total, "page", clamped, "rows", end-start)

	return &PageResult{
		Rows:      matched[start:end],
		TotalRows: total,
		Page:      clamped,
		PageSize:  pageSize,
	}, nil
}
