package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// nullTokens are the raw cell values read as missing.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
}

type columnData struct {
	kind  Kind
	strs  []string
	nums  []float64
	nulls []bool
}

// Table is an immutable, column-oriented dataset.
type Table struct {
	name   string
	schema Schema
	rows   int
	cols   []columnData
}

// Coercer resolves the kind for a column header.
type Coercer func(column string) Kind

// Build coerces raw string records into a Table. Cells that fail numeric
// coercion are recorded as null.
func Build(name string, header []string, records [][]string, kindOf Coercer) (*Table, error) {
	if kindOf == nil {
		kindOf = func(string) Kind { return KindString }
	}

	columns := make([]Column, len(header))
	for i, h := range header {
		columns[i] = Column{Name: h, Kind: kindOf(h)}
	}
	schema, err := NewSchema(columns...)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}

	t := &Table{name: name, schema: schema, rows: len(records), cols: make([]columnData, len(columns))}
	for i, c := range columns {
		cd := columnData{kind: c.Kind, nulls: make([]bool, len(records))}
		if c.Kind.Numeric() {
			cd.nums = make([]float64, len(records))
		} else {
			cd.strs = make([]string, len(records))
		}
		t.cols[i] = cd
	}

	for r, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("dataset %q: row %d has %d fields, want %d", name, r+1, len(rec), len(header))
		}
		for c, raw := range rec {
			t.cols[c].set(r, raw)
		}
	}
	return t, nil
}

func (cd *columnData) set(row int, raw string) {
	raw = strings.TrimSpace(raw)
	if _, null := nullTokens[raw]; null {
		cd.nulls[row] = true
		return
	}
	switch cd.kind {
	case KindString:
		cd.strs[row] = raw
	case KindInt:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v != math.Trunc(v) {
			cd.nulls[row] = true
			return
		}
		cd.nums[row] = v
	case KindFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) {
			cd.nulls[row] = true
			return
		}
		cd.nums[row] = v
	}
}

// Name returns the dataset name.
func (t *Table) Name() string { return t.name }

// Schema returns the table schema.
func (t *Table) Schema() Schema { return t.schema }

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// All returns a view over every row.
func (t *Table) All() View { return NewView(t) }

func (t *Table) column(name string) *columnData {
	i, ok := t.schema.index[name]
	if !ok {
		return nil
	}
	return &t.cols[i]
}

// Melt reshapes a wide table into long form: one output row per (input row,
// non-id column) pair, holding the id value, the column name and the cell.
func (t *Table) Melt(idColumn, varName, valueName string) (*Table, error) {
	id := t.column(idColumn)
	if id == nil {
		return nil, fmt.Errorf("melt %q: unknown id column %q", t.name, idColumn)
	}

	var valueKind Kind = -1
	var vars []Column
	for _, c := range t.schema.columns {
		if c.Name == idColumn {
			continue
		}
		if valueKind == -1 {
			valueKind = c.Kind
		} else if valueKind != c.Kind {
			valueKind = KindString
		}
		vars = append(vars, c)
	}
	if valueKind == -1 {
		valueKind = KindString
	}

	schema, err := NewSchema(
		Column{Name: idColumn, Kind: id.kind},
		Column{Name: varName, Kind: KindString},
		Column{Name: valueName, Kind: valueKind},
	)
	if err != nil {
		return nil, fmt.Errorf("melt %q: %w", t.name, err)
	}

	n := t.rows * len(vars)
	out := &Table{name: t.name, schema: schema, rows: n, cols: []columnData{
		{kind: id.kind, nulls: make([]bool, n)},
		{kind: KindString, strs: make([]string, n), nulls: make([]bool, n)},
		{kind: valueKind, nulls: make([]bool, n)},
	}}
	if id.kind.Numeric() {
		out.cols[0].nums = make([]float64, n)
	} else {
		out.cols[0].strs = make([]string, n)
	}
	if valueKind.Numeric() {
		out.cols[2].nums = make([]float64, n)
	} else {
		out.cols[2].strs = make([]string, n)
	}

	// variable-major, then input row
	k := 0
	for _, v := range vars {
		src := t.column(v.Name)
		for r := 0; r < t.rows; r++ {
			copyCell(&out.cols[0], k, id, r)
			out.cols[1].strs[k] = v.Name
			copyCell(&out.cols[2], k, src, r)
			k++
		}
	}
	return out, nil
}

func copyCell(dst *columnData, di int, src *columnData, si int) {
	if src.nulls[si] {
		dst.nulls[di] = true
		return
	}
	switch {
	case dst.kind.Numeric():
		dst.nums[di] = src.nums[si]
	case src.kind.Numeric():
		dst.strs[di] = formatNumber(src.nums[si])
	default:
		dst.strs[di] = src.strs[si]
	}
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
