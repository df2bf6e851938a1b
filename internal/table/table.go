// Package table binds a warehouse schema to column-oriented data and keeps
// the two consistent across every mutation.
package table

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/koba/bqtable/internal/convert"
	"github.com/koba/bqtable/internal/schema"
)

// ErrNoSchema is returned by operations that need a schema before data
var ErrNoSchema = errors.New("table has no schema")

// Table owns one schema and one data block. Values are only mutated
// through its methods; a Table is not safe for concurrent mutation.
type Table struct {
	schema schema.Schema
	data   schema.Block
	opts   convert.Options
}

// Option configures a Table
type Option func(*Table)

// WithLogger routes conversion and pivot warnings to logger
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) { t.opts.Logger = logger }
}

// WithInferRequired substitutes zero values for nulls in REQUIRED fields
func WithInferRequired(infer bool) Option {
	return func(t *Table) { t.opts.InferRequired = infer }
}

// WithLocation sets the zone used for naive date-times and numeric epochs
func WithLocation(loc *time.Location) Option {
	return func(t *Table) { t.opts.Location = loc }
}

// New creates an empty table
func New(opts ...Option) *Table {
	t := &Table{schema: schema.Schema{}, data: schema.Block{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) logger() *slog.Logger {
	if t.opts.Logger == nil {
		return slog.Default()
	}
	return t.opts.Logger
}

// Schema returns a copy of the table schema
func (t *Table) Schema() schema.Schema {
	return t.schema.Clone()
}

// Data returns a copy of the column-oriented data
func (t *Table) Data() schema.Block {
	return t.data.Clone()
}

// Len returns the number of rows
func (t *Table) Len() int {
	return t.data.Rows()
}

// SetSchema normalizes raw (see schema.Normalize) and binds it to the table.
// Existing data is realigned to the new field order, padded with nulls for
// added fields and converted again. Schema and data are replaced together
// or not at all; assigning an identical schema is a no-op.
func (t *Table) SetSchema(raw any) error {
	newSchema, err := schema.Normalize(raw)
	if err != nil {
		return err
	}
	if newSchema.Equal(t.schema) {
		return nil
	}

	data := t.data
	switch {
	case len(data) == 0:
		data = schema.Block{}
	case len(t.schema) > 0:
		if data, err = schema.Reconcile(t.schema, data, newSchema); err != nil {
			return err
		}
	case len(data) != len(newSchema):
		return fmt.Errorf("%w: data has %d columns but schema has %d fields", schema.ErrSchema, len(data), len(newSchema))
	}

	if len(data) > 0 {
		if data, err = convert.Block(data, newSchema, t.opts); err != nil {
			return err
		}
	}

	t.schema = newSchema
	t.data = data
	return nil
}

// SetData replaces the table data. data is either column-oriented
// ([][]any, schema.Block) or a list of rows (each a []any, map or
// schema.Row, see Append). Without a schema, column-oriented data is
// held unconverted until one is assigned.
func (t *Table) SetData(data any) error {
	var columns schema.Block
	switch v := data.(type) {
	case nil:
		t.data = schema.Block{}
		return nil
	case schema.Block:
		columns = v.Clone()
	case []schema.Column:
		columns = schema.Block(v).Clone()
	case [][]any:
		columns = make(schema.Block, len(v))
		for i := range v {
			columns[i] = append(make(schema.Column, 0, len(v[i])), v[i]...)
		}
	case []map[string]any, []schema.Row, []any:
		if len(t.schema) == 0 {
			return fmt.Errorf("cannot set rows: %w", ErrNoSchema)
		}
		rows, err := rowsOf(v)
		if err != nil {
			return err
		}
		if columns, err = t.pivot(rows); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unsupported data %T", convert.ErrValue, data)
	}

	t.padColumns(columns)

	if len(t.schema) == 0 {
		t.data = columns
		return nil
	}
	if len(columns) == 0 {
		t.data = schema.Block{}
		return nil
	}

	converted, err := convert.Block(columns, t.schema, t.opts)
	if err != nil {
		return err
	}
	t.data = converted
	return nil
}

// Append pivots rows into columns, converts them and adds them after the
// existing rows. Each row is a positional []any or a map keyed by field
// name.
func (t *Table) Append(rows []any) error {
	if len(t.schema) == 0 {
		return fmt.Errorf("cannot append: %w", ErrNoSchema)
	}

	columns, err := t.pivot(rows)
	if err != nil {
		return err
	}
	converted, err := convert.Block(columns, t.schema, t.opts)
	if err != nil {
		return err
	}

	data := t.data.Clone()
	if len(data) == 0 {
		data = make(schema.Block, len(t.schema))
		for i := range data {
			data[i] = schema.Column{}
		}
	}
	for i := range data {
		data[i] = append(data[i], converted[i]...)
	}
	t.data = data
	return nil
}

// Rename renames fields by old name; type, mode, description and nested
// fields are preserved and data stays in place.
func (t *Table) Rename(mapping map[string]string) error {
	renamed := t.schema.Clone()
	for oldName, newName := range mapping {
		i := t.schema.Index(oldName)
		if i < 0 {
			return fmt.Errorf("cannot rename %q: %w", oldName, schema.ErrLookup)
		}
		renamed[i].Name = newName
	}

	// Re-validate so that renames cannot produce duplicate or empty names
	normalized, err := schema.Normalize(renamed)
	if err != nil {
		return err
	}
	t.schema = normalized
	return nil
}

// Project keeps only the named fields, in the given order, together with
// their data. It is the explicit way to drop fields.
func (t *Table) Project(names ...string) error {
	projected := make(schema.Schema, 0, len(names))
	var columns schema.Block
	if len(t.data) > 0 {
		columns = make(schema.Block, 0, len(names))
	}
	for _, name := range names {
		i := t.schema.Index(name)
		if i < 0 {
			return fmt.Errorf("cannot project %q: %w", name, schema.ErrLookup)
		}
		projected = append(projected, t.schema[i].Clone())
		if columns != nil {
			columns = append(columns, t.data[i])
		}
	}

	normalized, err := schema.Normalize(projected)
	if err != nil {
		return err
	}
	t.schema = normalized
	if columns == nil {
		columns = schema.Block{}
	}
	t.data = columns.Clone()
	return nil
}

// padColumns null-pads columns shorter than the longest one
func (t *Table) padColumns(columns schema.Block) {
	n := columns.Rows()
	for i, col := range columns {
		if len(col) < n {
			t.logger().Warn("column shorter than longest column, padding with nulls",
				"column", i, "length", len(col), "rows", n)
			columns[i] = append(col, make(schema.Column, n-len(col))...)
		}
	}
}
