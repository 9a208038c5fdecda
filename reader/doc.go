// Package reader provides access to the columnar campaign dataset.
//
// It uses the parquet-go library to open parquet sources and exposes the
// dataset as a stream of rows, where each row is a map from column name to
// value. The source is validated at open time and treated as read-only for
// the lifetime of the process.
package reader
