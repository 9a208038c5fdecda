package reader

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// SchemaError reports a data source whose column layout makes it unusable:
// zero columns or duplicate column names. It is fatal for the session.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid dataset schema: %s", e.Reason)
}

// Schema describes the columns available in a dataset. Downstream
// components consult it before touching optional columns so a missing
// column degrades a single feature instead of failing the request.
type Schema struct {
	names []string
	set   map[string]bool
}

// newSchema extracts and validates column names from a parquet schema.
func newSchema(ps *parquet.Schema) (*Schema, error) {
	fields := ps.Fields()
	if len(fields) == 0 {
		return nil, &SchemaError{Reason: "source has no columns"}
	}

	s := &Schema{
		names: make([]string, 0, len(fields)),
		set:   make(map[string]bool, len(fields)),
	}

	var dupes []string
	for _, field := range fields {
		name := field.Name()
		if s.set[name] {
			dupes = append(dupes, name)
			continue
		}
		s.set[name] = true
		s.names = append(s.names, name)
	}

	if len(dupes) > 0 {
		return nil, &SchemaError{
			Reason: fmt.Sprintf("duplicate column names: %s", strings.Join(dupes, ", ")),
		}
	}

	return s, nil
}

// NewSchemaFromNames builds a Schema from explicit column names. It applies
// the same validation as opening a parquet source and exists mainly for
// tests and non-parquet callers.
func NewSchemaFromNames(names []string) (*Schema, error) {
	if len(names) == 0 {
		return nil, &SchemaError{Reason: "source has no columns"}
	}

	s := &Schema{
		names: make([]string, 0, len(names)),
		set:   make(map[string]bool, len(names)),
	}

	var dupes []string
	for _, name := range names {
		if s.set[name] {
			dupes = append(dupes, name)
			continue
		}
		s.set[name] = true
		s.names = append(s.names, name)
	}

	if len(dupes) > 0 {
		return nil, &SchemaError{
			Reason: fmt.Sprintf("duplicate column names: %s", strings.Join(dupes, ", ")),
		}
	}

	return s, nil
}

// Has reports whether the dataset contains the named column.
func (s *Schema) Has(name string) bool {
	return s.set[name]
}

// Names returns the column names in source order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.names)
}
