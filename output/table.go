package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/crowdinsight/crowdinsight/engine"
)

// displayColumns is the fixed column set of the browse table.
var displayColumns = []string{
	engine.ColProjectName,
	engine.ColCreator,
	engine.ColPledged,
	engine.ColCountry,
	engine.ColState,
	engine.ColLink,
}

// TableFormatter renders rows as an aligned terminal table showing the
// browse display columns.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new terminal table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format writes rows as a terminal table. Absent values render as "N/A",
// pledged amounts as whole dollars.
func (t *TableFormatter) Format(rows []map[string]interface{}) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(t.writer, "No projects match the current filters.")
		return err
	}

	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(displayColumns)
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, row := range rows {
		record := make([]string, len(displayColumns))
		for i, col := range displayColumns {
			record[i] = cellValue(row, col)
		}
		table.Append(record)
	}

	table.Render()
	return nil
}

// cellValue formats one table cell.
func cellValue(row map[string]interface{}, col string) string {
	v, ok := row[col]
	if !ok || v == nil {
		return "N/A"
	}
	if col == engine.ColPledged {
		if f, ok := asDisplayFloat(v); ok {
			return fmt.Sprintf("$%.0f", f)
		}
		return "N/A"
	}
	return fmt.Sprintf("%v", v)
}

// asDisplayFloat converts the numeric types the reader produces.
func asDisplayFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
