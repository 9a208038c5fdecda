package reader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// Dataset is an opened parquet data source.
//
// It maintains both an OS file handle and a parquet file handle so the
// underlying data can be scanned repeatedly without re-opening the file.
// A Dataset is safe for concurrent readers: every Scan creates its own
// row reader over the shared immutable file.
type Dataset struct {
	path   string
	file   *os.File
	pqFile *parquet.File
	schema *Schema
}

// Open opens and validates a parquet data source.
//
// The source must contain at least one column and no duplicate column
// names; violations are reported as a *SchemaError. The file contents are
// not materialized here.
//
// Example:
//
//	ds, err := reader.Open("campaigns_2024-06-01T00-00-00.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ds.Close()
func Open(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	schema, err := newSchema(pqFile.Schema())
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	return &Dataset{
		path:   path,
		file:   file,
		pqFile: pqFile,
		schema: schema,
	}, nil
}

// Path returns the path the dataset was opened from.
func (d *Dataset) Path() string {
	return d.path
}

// Schema returns the validated column schema of the dataset.
func (d *Dataset) Schema() *Schema {
	return d.schema
}

// NumRows returns the total number of rows in the source.
func (d *Dataset) NumRows() int64 {
	return d.pqFile.NumRows()
}

// Scan streams every row of the dataset to visit in file order.
//
// Each row is a map where keys are column names and values are the column
// values. Rows are decoded one at a time, so the dataset is never loaded
// into memory wholesale. Scan stops early and returns the visitor's error
// if visit returns non-nil.
func (d *Dataset) Scan(visit func(row map[string]interface{}) error) error {
	rows := parquet.NewReader(d.pqFile)
	defer func() { _ = rows.Close() }()

	for {
		row := make(map[string]interface{})
		err := rows.Read(&row)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read row: %w", err)
		}
		if err := visit(row); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the dataset and releases associated resources. It is safe
// to call Close multiple times.
func (d *Dataset) Close() error {
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}
