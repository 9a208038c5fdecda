// Package output provides formatters for writing result pages to a
// terminal or file.
//
// Supported formats:
//   - JSON Lines: one JSON object per row
//   - CSV: comma-separated values with header row
//   - Table: aligned terminal table of the display columns
//
// Example usage:
//
//	formatter := output.NewTableFormatter(os.Stdout)
//	if err := formatter.Format(page.Rows); err != nil {
//	    log.Fatal(err)
//	}
package output

import "io"

// Formatter defines the interface for output formatters.
type Formatter interface {
	// Format writes rows in the formatter's specific format
	Format(rows []map[string]interface{}) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// New returns the formatter for a format name ("json", "csv" or "table");
// unknown names fall back to the table formatter.
func New(format string, w io.Writer) Formatter {
	switch format {
	case "json", "jsonl":
		return NewJSONFormatter(w)
	case "csv":
		return NewCSVFormatter(w)
	default:
		return NewTableFormatter(w)
	}
}
