package snapshot

import (
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/koba/bqtable/internal/export"
	"github.com/koba/bqtable/internal/schema"
	"github.com/koba/bqtable/internal/table"
)

// document is the serialized form of one table
type document struct {
	Schema []map[string]any `json:"schema"`
	Data   [][]any          `json:"data"`
}

// Encode writes t as gzip-compressed JSON holding its schema and columns.
// Values keep enough type information to convert back to equal values.
func Encode(w io.Writer, t *table.Table) error {
	s := t.Schema()
	data := t.Data()
	if len(s) == 0 && len(data) > 0 {
		return table.ErrNoSchema
	}

	doc := document{Schema: s.Dicts(), Data: make([][]any, len(data))}
	if doc.Schema == nil {
		doc.Schema = []map[string]any{}
	}
	for i, col := range data {
		wire := make([]any, len(col))
		for r, v := range col {
			encoded, err := encodeValue(s[i], v)
			if err != nil {
				return fmt.Errorf("failed to encode %s row %d: %w", s[i].Name, r, err)
			}
			wire[r] = encoded
		}
		doc.Data[i] = wire
	}

	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(doc); err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode table: %w", err)
	}
	return zw.Close()
}

// Decode reads a table written by Encode
func Decode(r io.Reader, opts ...table.Option) (*table.Table, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open table payload: %w", err)
	}
	defer zr.Close()

	var doc document
	dec := json.NewDecoder(zr)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode table: %w", err)
	}

	fields := make([]any, len(doc.Schema))
	for i, d := range doc.Schema {
		fields[i] = d
	}
	s, err := schema.Normalize(fields)
	if err != nil {
		return nil, err
	}
	if len(doc.Data) != len(s) && len(doc.Data) > 0 {
		return nil, fmt.Errorf("%w: payload has %d columns for %d fields", schema.ErrSchema, len(doc.Data), len(s))
	}

	data := make(schema.Block, len(doc.Data))
	for i, col := range doc.Data {
		column := make(schema.Column, len(col))
		for r, v := range col {
			decoded, err := decodeValue(s[i], v)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s row %d: %w", s[i].Name, r, err)
			}
			column[r] = decoded
		}
		data[i] = column
	}

	t := table.New(opts...)
	if err := t.SetSchema(s); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := t.SetData(data); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func encodeValue(f schema.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	// nested values travel as JSON text
	if f.Type.IsNested() {
		b, err := json.Marshal(export.NestedJSONValue(v))
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}

	if items, ok := v.([]any); ok && f.Mode == schema.ModeRepeated {
		element := f
		element.Mode = schema.ModeNullable
		out := make([]any, len(items))
		for i, item := range items {
			encoded, err := encodeValue(element, item)
			if err != nil {
				return nil, err
			}
			out[i] = encoded
		}
		return out, nil
	}

	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return nil, nil
		}
		if math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		}
		return x, nil
	case []byte:
		return base64.StdEncoding.EncodeToString(x), nil
	case decimal.Decimal:
		return x.String(), nil
	case civil.Date:
		return x.String(), nil
	case civil.DateTime:
		return x.String(), nil
	case civil.Time:
		return x.String(), nil
	}
	return v, nil
}

func decodeValue(f schema.Field, v any) (any, error) {
	if f.Type != schema.TypeBytes {
		return v, nil
	}

	switch x := v.(type) {
	case string:
		return base64.StdEncoding.DecodeString(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			decoded, err := decodeValue(f, item)
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return out, nil
	}
	return v, nil
}
