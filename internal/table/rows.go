package table

import (
	"bytes"
	"fmt"
	"math"
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/koba/bqtable/internal/convert"
	"github.com/koba/bqtable/internal/schema"
)

// RowType selects how rows are materialized
type RowType string

const (
	RowTypeList RowType = "list"
	RowTypeDict RowType = "dict"
)

// ParseRowType validates a row type name
func ParseRowType(s string) (RowType, error) {
	switch RowType(s) {
	case RowTypeList, RowTypeDict:
		return RowType(s), nil
	}
	return "", fmt.Errorf("%w: row type must be %q or %q, not %q", convert.ErrValue, RowTypeList, RowTypeDict, s)
}

// Rows materializes up to n rows (all rows when n <= 0) as positional lists
func (t *Table) Rows(n int) [][]any {
	count := t.rowCount(n)
	rows := make([][]any, count)
	for r := 0; r < count; r++ {
		row := make([]any, len(t.data))
		for c, col := range t.data {
			row[c] = col[r]
		}
		rows[r] = row
	}
	return rows
}

// Records materializes up to n rows (all rows when n <= 0) keyed by field name
func (t *Table) Records(n int) []schema.Row {
	count := t.rowCount(n)
	rows := make([]schema.Row, count)
	for r := 0; r < count; r++ {
		row := make(schema.Row, len(t.schema))
		for c, field := range t.schema {
			row[field.Name] = t.data[c][r]
		}
		rows[r] = row
	}
	return rows
}

// RowsAs materializes rows in the requested shape
func (t *Table) RowsAs(n int, rowType RowType) []any {
	var out []any
	switch rowType {
	case RowTypeDict:
		for _, r := range t.Records(n) {
			out = append(out, r)
		}
	default:
		for _, r := range t.Rows(n) {
			out = append(out, r)
		}
	}
	return out
}

func (t *Table) rowCount(n int) int {
	count := t.data.Rows()
	if n > 0 && n < count {
		count = n
	}
	return count
}

// pivot turns rows into columns in schema order. Positional rows longer
// than the schema are truncated and shorter ones null-padded, both with
// a warning; missing map keys become null.
func (t *Table) pivot(rows []any) (schema.Block, error) {
	width := len(t.schema)
	columns := make(schema.Block, width)
	for i := range columns {
		columns[i] = make(schema.Column, 0, len(rows))
	}

	for r, raw := range rows {
		var row []any
		switch v := raw.(type) {
		case map[string]any:
			row = recordValues(v, t.schema)
		case schema.Row:
			row = recordValues(v, t.schema)
		case []any:
			row = v
			switch {
			case len(row) > width:
				t.logger().Warn("row contains more items than schema, truncating", "row", r, "items", len(row), "fields", width)
				row = row[:width]
			case len(row) < width:
				t.logger().Warn("row contains fewer items than schema, padding with nulls", "row", r, "items", len(row), "fields", width)
				row = append(append(make([]any, 0, width), row...), make([]any, width-len(row))...)
			}
		default:
			return nil, fmt.Errorf("%w: row %d has unsupported type %T", convert.ErrValue, r, raw)
		}

		for i, v := range row {
			columns[i] = append(columns[i], v)
		}
	}
	return columns, nil
}

func recordValues(m map[string]any, s schema.Schema) []any {
	row := make([]any, len(s))
	for i, f := range s {
		row[i] = m[f.Name]
	}
	return row
}

// rowsOf flattens the accepted row container types
func rowsOf(data any) ([]any, error) {
	switch v := data.(type) {
	case []any:
		return v, nil
	case []map[string]any:
		rows := make([]any, len(v))
		for i := range v {
			rows[i] = v[i]
		}
		return rows, nil
	case []schema.Row:
		rows := make([]any, len(v))
		for i := range v {
			rows[i] = v[i]
		}
		return rows, nil
	}
	return nil, fmt.Errorf("%w: unsupported rows %T", convert.ErrValue, data)
}

// Equal reports whether both tables hold equal schemas and data. NaN
// equals NaN so that absent FLOAT values compare equal.
func (t *Table) Equal(other *Table) bool {
	if !t.schema.Equal(other.schema) || len(t.data) != len(other.data) {
		return false
	}
	for c := range t.data {
		if len(t.data[c]) != len(other.data[c]) {
			return false
		}
		for r := range t.data[c] {
			if !ValuesEqual(t.data[c][r], other.data[c][r]) {
				return false
			}
		}
	}
	return true
}

// ValuesEqual compares two converted values
func ValuesEqual(a, b any) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && (x == y || (math.IsNaN(x) && math.IsNaN(y)))
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !ValuesEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
