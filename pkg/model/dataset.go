// pkg/model/dataset.go
package model

import (
	"fmt"
)

// Row maps column name to value. A nil value marks a missing cell.
type Row map[string]interface{}

// Dataset is an ordered collection of named, typed columns plus rows in input order.
//
// Every row carries exactly the declared column set. Transform functions never mutate a
// Dataset they receive; they Clone it first.
type Dataset struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// NewDataset creates an empty dataset with the given columns
func NewDataset(name string, columns []Column) *Dataset {
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Dataset{
		Name:    name,
		Columns: cols,
		Rows:    make([]Row, 0),
	}
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// IsEmpty reports whether the dataset has no rows
func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

// Clone returns a deep copy of the dataset. Cell values are immutable scalars, so copying
// the row maps is sufficient.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := &Dataset{
		Name:    d.Name,
		Columns: make([]Column, len(d.Columns)),
		Rows:    make([]Row, len(d.Rows)),
	}
	copy(out.Columns, d.Columns)
	for i, row := range d.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}

// Clone copies a single row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AppendRow adds a row, filling absent columns with the missing marker
func (d *Dataset) AppendRow(values Row) {
	row := make(Row, len(d.Columns))
	for _, col := range d.Columns {
		row[col.Name] = values[col.Name]
	}
	d.Rows = append(d.Rows, row)
}

// ColumnIndex returns the position of the named column or -1
func (d *Dataset) ColumnIndex(name string) int {
	for i, col := range d.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the dataset declares the named column
func (d *Dataset) HasColumn(name string) bool {
	return d.ColumnIndex(name) >= 0
}

// Column returns the named column and whether it exists
func (d *Dataset) Column(name string) (Column, bool) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return Column{}, false
	}
	return d.Columns[idx], true
}

// ColumnNames returns column names in declared order
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// ColumnsOfType returns the names of columns with the given type, in declared order
func (d *Dataset) ColumnsOfType(t ColumnType) []string {
	var names []string
	for _, col := range d.Columns {
		if col.Type == t {
			names = append(names, col.Name)
		}
	}
	return names
}

// SetColumnType changes the declared type of a column
func (d *Dataset) SetColumnType(name string, t ColumnType) {
	if idx := d.ColumnIndex(name); idx >= 0 {
		d.Columns[idx].Type = t
	}
}

// ColumnValues returns every value of a column in row order, including missing markers
func (d *Dataset) ColumnValues(name string) []interface{} {
	values := make([]interface{}, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[name]
	}
	return values
}

// NumericValues returns the non-missing numeric values of a column in row order
func (d *Dataset) NumericValues(name string) []float64 {
	values := make([]float64, 0, len(d.Rows))
	for _, row := range d.Rows {
		if f, ok := AsFloat(row[name]); ok {
			values = append(values, f)
		}
	}
	return values
}

// MissingCount counts missing cells in a column
func (d *Dataset) MissingCount(name string) int {
	count := 0
	for _, row := range d.Rows {
		if IsMissing(row[name]) {
			count++
		}
	}
	return count
}

// TotalMissing counts missing cells across all columns
func (d *Dataset) TotalMissing() int {
	total := 0
	for _, col := range d.Columns {
		total += d.MissingCount(col.Name)
	}
	return total
}

// AddColumn inserts a column after the column named `after` (or at the end when
// `after` is empty or unknown), initializing it with values from fill.
func (d *Dataset) AddColumn(col Column, after string, fill func(i int, row Row) interface{}) {
	pos := len(d.Columns)
	if after != "" {
		if idx := d.ColumnIndex(after); idx >= 0 {
			pos = idx + 1
		}
	}
	d.Columns = append(d.Columns, Column{})
	copy(d.Columns[pos+1:], d.Columns[pos:])
	d.Columns[pos] = col

	for i, row := range d.Rows {
		var v interface{}
		if fill != nil {
			v = fill(i, row)
		}
		row[col.Name] = v
	}
}

// DropColumn removes a column and its cells
func (d *Dataset) DropColumn(name string) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return
	}
	d.Columns = append(d.Columns[:idx], d.Columns[idx+1:]...)
	for _, row := range d.Rows {
		delete(row, name)
	}
}

// RequireColumns returns a DataShapeError naming the first absent column
func (d *Dataset) RequireColumns(operation string, names []string) error {
	for _, name := range names {
		if !d.HasColumn(name) {
			return &DataShapeError{
				Operation: operation,
				Column:    name,
				Reason:    "column not present in dataset",
			}
		}
	}
	return nil
}

// Validate checks that column names are unique and every row carries the column set
func (d *Dataset) Validate() error {
	seen := make(map[string]bool, len(d.Columns))
	for _, col := range d.Columns {
		if col.Name == "" {
			return &DataShapeError{Operation: "validate", Reason: "empty column name"}
		}
		if seen[col.Name] {
			return &DataShapeError{Operation: "validate", Column: col.Name, Reason: "duplicate column name"}
		}
		seen[col.Name] = true
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return &DataShapeError{
				Operation: "validate",
				Reason:    fmt.Sprintf("row %d has %d cells, expected %d", i, len(row), len(d.Columns)),
			}
		}
		for _, col := range d.Columns {
			if _, ok := row[col.Name]; !ok {
				return &DataShapeError{
					Operation: "validate",
					Column:    col.Name,
					Reason:    fmt.Sprintf("row %d is missing the column", i),
				}
			}
		}
	}
	return nil
}
