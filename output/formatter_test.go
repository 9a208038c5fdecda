package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/crowdinsight/crowdinsight/engine"
)

func sampleRows() []map[string]interface{} {
	return []map[string]interface{}{
		{
			engine.ColProjectName: "Giant Robot Kit",
			engine.ColCreator:     "RobotWorks",
			engine.ColPledged:     1234.5,
			engine.ColCountry:     "US",
			engine.ColState:       "successful",
			engine.ColLink:        "https://example.com/robot",
		},
		{
			engine.ColProjectName: "Indie Film",
			engine.ColCreator:     "Alice",
			engine.ColPledged:     nil,
			engine.ColCountry:     "GB",
			engine.ColState:       "failed",
			engine.ColLink:        "https://example.com/film",
		},
	}
}

func TestNew_Dispatch(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		format string
		want   string
	}{
		{"json", "*output.JSONFormatter"},
		{"jsonl", "*output.JSONFormatter"},
		{"csv", "*output.CSVFormatter"},
		{"table", "*output.TableFormatter"},
		{"unknown", "*output.TableFormatter"},
		{"", "*output.TableFormatter"},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			f := New(tt.format, &buf)
			var got string
			switch f.(type) {
			case *JSONFormatter:
				got = "*output.JSONFormatter"
			case *CSVFormatter:
				got = "*output.CSVFormatter"
			case *TableFormatter:
				got = "*output.TableFormatter"
			}
			if got != tt.want {
				t.Errorf("New(%q) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	if err := f.Format(sampleRows()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var row map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &row); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if row[engine.ColProjectName] != "Giant Robot Kit" {
		t.Errorf("project name = %v", row[engine.ColProjectName])
	}
}

func TestJSONFormatter_UnencodableRow(t *testing.T) {
	var buf bytes.Buffer
	rows := []map[string]interface{}{
		{engine.ColProjectName: "fine"},
		{engine.ColProjectName: make(chan int)},
	}

	err := NewJSONFormatter(&buf).Format(rows)
	if err == nil {
		t.Fatalf("Format() succeeded on an unencodable value, want error")
	}
	if !strings.Contains(err.Error(), "row 1") {
		t.Errorf("error = %v, want the failing row identified", err)
	}
}

func TestJSONFormatter_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter(&buf).Format(nil); err != nil {
		t.Fatalf("Format(nil) error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewCSVFormatter(&buf)

	if err := f.Format(sampleRows()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 rows", len(lines))
	}

	// Header is the sorted union of column names.
	header := strings.Split(lines[0], ",")
	for i := 1; i < len(header); i++ {
		if header[i-1] > header[i] {
			t.Errorf("header not sorted: %v", header)
			break
		}
	}

	// Null values render as empty fields.
	if !strings.Contains(lines[2], "Indie Film") {
		t.Errorf("second row = %q, want Indie Film", lines[2])
	}
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&buf)

	if err := f.Format(sampleRows()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Giant Robot Kit") {
		t.Errorf("table output missing a project name:\n%s", out)
	}
	if !strings.Contains(out, "$1234") {
		t.Errorf("table output missing the formatted pledged amount:\n%s", out)
	}
	// The null pledged cell of the second row renders as N/A.
	if !strings.Contains(out, "N/A") {
		t.Errorf("table output missing N/A for empty value:\n%s", out)
	}
}

func TestTableFormatter_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableFormatter(&buf).Format(nil); err != nil {
		t.Fatalf("Format(nil) error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "No projects match the current filters." {
		t.Errorf("output = %q, want the no-results message", got)
	}
}

func TestSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	f := NewJSONFormatter(&first)
	f.SetOutput(&second)

	if err := f.Format(sampleRows()[:1]); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if first.Len() != 0 {
		t.Errorf("first writer received output after SetOutput")
	}
	if second.Len() == 0 {
		t.Errorf("second writer received no output")
	}
}
