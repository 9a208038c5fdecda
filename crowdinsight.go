// Package crowdinsight ties the dataset, filter metadata, and query engine
// together behind one Explorer facade.
//
// Example usage:
//
//	exp, err := crowdinsight.Open(crowdinsight.Options{
//	    DatasetPath:  "campaigns_2024-06-01T00-00-00.parquet",
//	    MetadataPath: "filter_metadata.json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exp.Close()
//
//	page, err := exp.Browse(crowdinsight.BrowseRequest{Page: 1})
package crowdinsight

import (
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/crowdinsight/crowdinsight/engine"
	"github.com/crowdinsight/crowdinsight/metadata"
	"github.com/crowdinsight/crowdinsight/reader"
)

// Options configure Open.
type Options struct {
	// DatasetPath is the parquet snapshot to open.
	DatasetPath string
	// MetadataPath locates the filter metadata descriptor; empty means
	// metadata.DefaultPath.
	MetadataPath string
	// PageSize overrides the browse page size; 0 means the default.
	PageSize int
	// Logger receives warnings and debug output; nil means no logging.
	Logger log.Logger
}

// Explorer is an opened dataset plus everything needed to serve browse
// and insights requests. The dataset and anchor date are loaded once and
// shared read-only; the Explorer holds no per-request state, so it is safe
// for concurrent use across sessions.
type Explorer struct {
	dataset  *reader.Dataset
	meta     *metadata.Metadata
	analyzer *engine.Analyzer
	anchor   time.Time
	pageSize int
	logger   log.Logger
}

// Open opens the dataset and metadata and derives the anchor date from the
// dataset filename, falling back to today with a warning when the filename
// carries no date stamp.
func Open(opts Options) (*Explorer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	ds, err := reader.Open(opts.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}

	anchor, ok := reader.AnchorDateFromPath(opts.DatasetPath)
	if !ok {
		anchor = time.Now().UTC().Truncate(24 * time.Hour)
		level.Warn(logger).Log("msg", "no date stamp in dataset filename, using today as anchor",
			"path", opts.DatasetPath, "anchor", anchor.Format("2006-01-02"))
	}

	metaPath := opts.MetadataPath
	if metaPath == "" {
		metaPath = metadata.DefaultPath
	}
	meta := metadata.Load(metaPath, logger)

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = engine.DefaultPageSize
	}

	return &Explorer{
		dataset:  ds,
		meta:     meta,
		analyzer: engine.NewAnalyzer(ds.Schema(), meta.Categories, logger),
		anchor:   anchor,
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

// Close releases the dataset handle.
func (e *Explorer) Close() error {
	return e.dataset.Close()
}

// Schema returns the dataset's column schema.
func (e *Explorer) Schema() *reader.Schema {
	return e.dataset.Schema()
}

// NumRows returns the total number of rows in the dataset.
func (e *Explorer) NumRows() int64 {
	return e.dataset.NumRows()
}

// AnchorDate returns the dataset's anchor date.
func (e *Explorer) AnchorDate() time.Time {
	return e.anchor
}

// Metadata returns the loaded filter metadata.
func (e *Explorer) Metadata() *metadata.Metadata {
	return e.meta
}

// PageSize returns the configured browse page size.
func (e *Explorer) PageSize() int {
	return e.pageSize
}

// BrowseRequest is one immutable browse query.
type BrowseRequest struct {
	Page    int                `json:"page"`
	Filters engine.FilterState `json:"filters"`
	Sort    engine.SortOrder   `json:"sort_order"`
}

// Browse executes a filtered, sorted, paginated query and returns one page
// of rows. Submitted numeric ranges are clamped to the dataset's absolute
// bounds before execution.
func (e *Explorer) Browse(req BrowseRequest) (*engine.PageResult, error) {
	filters := req.Filters.Normalize()
	if filters.Ranges != nil {
		clamped := e.meta.ClampRanges(*filters.Ranges)
		filters.Ranges = &clamped
	}

	pred := engine.BuildPredicate(e.dataset.Schema(), filters, e.anchor, e.logger)
	return engine.Execute(e.dataset, e.dataset.Schema(), pred, req.Sort, req.Page, e.pageSize, e.logger)
}

// Insights computes the comparative analytics payload for a category
// selection and date window.
func (e *Explorer) Insights(req engine.InsightsRequest) (*engine.InsightsResult, error) {
	return e.analyzer.Insights(e.dataset, req, e.anchor)
}

// Facets is the descriptor a UI needs to seed its filter controls.
type Facets struct {
	Categories    []string            `json:"categories"`
	Subcategories map[string][]string `json:"category_subcategory_map"`
	Countries     []string            `json:"countries"`
	States        []string            `json:"states"`
	DateRanges    []string            `json:"date_ranges"`
	Bounds        metadata.Bounds     `json:"min_max_values"`
	AnchorDate    string              `json:"dataset_creation_date"`
	PageSize      int                 `json:"page_size"`
}

// Facets returns the filterable surface of the dataset.
func (e *Explorer) Facets() Facets {
	return Facets{
		Categories:    e.meta.Categories,
		Subcategories: e.meta.CategoryMap,
		Countries:     e.meta.Countries,
		States:        e.meta.States,
		DateRanges:    e.meta.DateRanges,
		Bounds:        e.meta.Bounds,
		AnchorDate:    e.anchor.Format("2006-01-02"),
		PageSize:      e.pageSize,
	}
}
