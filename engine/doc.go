// Package engine implements the query and analytics core over the campaign
// dataset: filter predicate construction, paginated query execution,
// relative period-window resolution, grouped metric aggregation, and
// comparative period-over-period analytics.
//
// The engine holds no mutable state between calls. Every operation is a
// function of an immutable request plus the read-only dataset, so multiple
// sessions may execute against the same dataset concurrently.
//
// Example usage:
//
//	pred := engine.BuildPredicate(schema, filters, anchor, logger)
//	page, err := engine.Execute(ds, schema, pred, engine.SortPopularity, 2, 10, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
package engine
