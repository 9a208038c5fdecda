package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter writes result pages as JSON Lines: one campaign object
// per line with every column the row carries, nulls included. The format
// survives piping through line-oriented tools, which is why it is the
// machine-readable default of the query command.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a JSON Lines formatter writing to w.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (f *JSONFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format streams each row as one JSON object per line. An empty page
// produces no output at all, not an empty array.
func (f *JSONFormatter) Format(rows []map[string]interface{}) error {
	encoder := json.NewEncoder(f.writer)
	for i, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i, err)
		}
	}
	return nil
}
