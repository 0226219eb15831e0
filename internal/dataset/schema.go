package dataset

import "fmt"

// Kind is the coerced type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// Numeric reports whether values of this kind are stored as numbers.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// Column names one field of a table.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"-"`
}

// Schema is the ordered column list of a table with name lookup.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema builds a schema; duplicate column names are rejected.
func NewSchema(columns ...Column) (Schema, error) {
	s := Schema{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := s.index[c.Name]; dup {
			return Schema{}, fmt.Errorf("duplicate column %q", c.Name)
		}
		s.index[c.Name] = len(s.columns)
		s.columns = append(s.columns, c)
	}
	return s, nil
}

// Has answers the capability query used by the filter engine.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Column returns the column definition for name.
func (s Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Columns returns a copy of the ordered column list.
func (s Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// Names returns the ordered column names.
func (s Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Len is the number of columns.
func (s Schema) Len() int {
	return len(s.columns)
}
