package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/koba/bqtable/internal/export"
	"github.com/koba/bqtable/internal/schema"
	"github.com/koba/bqtable/internal/table"
)

// Pull reads up to limit rows (all when limit <= 0) of tableRef into a new
// table carrying the warehouse schema, restricted to columns when given.
func Pull(ctx context.Context, w Warehouse, tableRef string, limit int, columns []string, opts ...table.Option) (*table.Table, error) {
	s, err := w.GetSchema(ctx, tableRef)
	if err != nil {
		return nil, err
	}

	t := table.New(opts...)
	if err := t.SetSchema(s); err != nil {
		return nil, fmt.Errorf("failed to bind schema of %s: %w", tableRef, err)
	}
	if len(columns) > 0 {
		if err := t.Project(columns...); err != nil {
			return nil, err
		}
	}

	s = t.Schema()
	rows, err := w.RunQuery(ctx, w.SelectQuery(tableRef, s.Names()), limit)
	if err != nil {
		return nil, err
	}

	batch := make([]any, len(rows))
	for i, row := range rows {
		decodeJSONValues(s, row)
		batch[i] = row
	}
	if err := t.Append(batch); err != nil {
		return nil, fmt.Errorf("failed to convert rows of %s: %w", tableRef, err)
	}
	return t, nil
}

// decodeJSONValues restores repeated and nested values that relational
// warehouses hand back as JSON text
func decodeJSONValues(s schema.Schema, row []any) {
	for i, f := range s {
		if i >= len(row) || (f.Mode != schema.ModeRepeated && !f.Type.IsNested()) {
			continue
		}
		text, ok := row[i].(string)
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err == nil {
			row[i] = decoded
		}
	}
}

// Push loads every row of t into tableRef
func Push(ctx context.Context, w Warehouse, t *table.Table, tableRef string, mode WriteMode) (*LoadResult, error) {
	s := t.Schema()
	if len(s) == 0 {
		return nil, table.ErrNoSchema
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, t, export.CSVOptions{}); err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}
	return w.LoadFile(ctx, tableRef, &buf, s, mode)
}
