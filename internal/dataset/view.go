package dataset

// View is a row subset of a Table. It never copies or mutates the table.
type View struct {
	table *Table
	rows  []int
	all   bool
}

// NewView wraps t in a view over every row.
func NewView(t *Table) View {
	return View{table: t, all: true}
}

// Table returns the underlying table.
func (v View) Table() *Table { return v.table }

// Schema returns the schema of the underlying table.
func (v View) Schema() Schema {
	if v.table == nil {
		return Schema{}
	}
	return v.table.schema
}

// Len returns the number of rows in the view.
func (v View) Len() int {
	if v.table == nil {
		return 0
	}
	if v.all {
		return v.table.rows
	}
	return len(v.rows)
}

// Row maps a view index to the table row index.
func (v View) Row(i int) int {
	if v.all {
		return i
	}
	return v.rows[i]
}

// Rows returns the table row indexes covered by the view.
func (v View) Rows() []int {
	out := make([]int, v.Len())
	for i := range out {
		out[i] = v.Row(i)
	}
	return out
}

// IsNull reports whether the cell is missing. Unknown columns read as null.
func (v View) IsNull(column string, i int) bool {
	c := v.table.column(column)
	return c == nil || c.nulls[v.Row(i)]
}

// String returns the cell as text; numeric cells are formatted, nulls are "".
func (v View) String(column string, i int) string {
	c := v.table.column(column)
	if c == nil {
		return ""
	}
	r := v.Row(i)
	if c.nulls[r] {
		return ""
	}
	if c.kind.Numeric() {
		return formatNumber(c.nums[r])
	}
	return c.strs[r]
}

// Float returns the numeric cell and false when the cell is null or not numeric.
func (v View) Float(column string, i int) (float64, bool) {
	c := v.table.column(column)
	if c == nil || !c.kind.Numeric() {
		return 0, false
	}
	r := v.Row(i)
	if c.nulls[r] {
		return 0, false
	}
	return c.nums[r], true
}

// Filter keeps the rows for which keep returns true.
func (v View) Filter(keep func(i int) bool) View {
	n := v.Len()
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if keep(i) {
			rows = append(rows, v.Row(i))
		}
	}
	return View{table: v.table, rows: rows}
}

// Subset returns the view rows at the given view-relative indexes, in order.
func (v View) Subset(indexes []int) View {
	rows := make([]int, len(indexes))
	for k, i := range indexes {
		rows[k] = v.Row(i)
	}
	return View{table: v.table, rows: rows}
}

// DropNulls removes rows holding a null in any of columns, or in any column
// when none are given.
func (v View) DropNulls(columns ...string) View {
	if v.table == nil {
		return v
	}
	if len(columns) == 0 {
		columns = v.table.schema.Names()
	}
	return v.Filter(func(i int) bool {
		for _, c := range columns {
			if v.IsNull(c, i) {
				return false
			}
		}
		return true
	})
}

// Unique returns the distinct non-null values of column in first-seen order.
func (v View) Unique(column string) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < v.Len(); i++ {
		if v.IsNull(column, i) {
			continue
		}
		s := v.String(column, i)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
