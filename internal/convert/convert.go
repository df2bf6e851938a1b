// Package convert coerces loosely typed values into the Go representation
// of warehouse column types.
//
// Converted values use these Go types:
//
//	INTEGER    int64
//	FLOAT      float64 (NaN when absent)
//	NUMERIC    decimal.Decimal
//	BOOLEAN    bool
//	STRING     string
//	BYTES      []byte
//	DATE       civil.Date
//	DATETIME   civil.DateTime
//	TIME       civil.Time
//	TIMESTAMP  float64 seconds since the Unix epoch
//
// Absent values are nil for every type except FLOAT.
package convert

import (
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/koba/bqtable/internal/schema"
)

// Options tunes a conversion
type Options struct {
	// InferRequired substitutes the type's zero value for absent values
	// in REQUIRED fields instead of failing.
	InferRequired bool

	// Location interprets naive date-times and numeric epochs. Defaults to time.Local.
	Location *time.Location

	// Logger receives warnings about lossy conversions. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// coercer converts one value for a given mode
type coercer func(v any, mode schema.Mode, opts Options) (any, error)

var coercers = map[schema.Type]coercer{
	schema.TypeInteger:   ToInteger,
	schema.TypeFloat:     ToFloat,
	schema.TypeNumeric:   ToNumeric,
	schema.TypeBoolean:   ToBoolean,
	schema.TypeString:    ToString,
	schema.TypeBytes:     ToBytes,
	schema.TypeDate:      ToDate,
	schema.TypeDatetime:  ToDatetime,
	schema.TypeTime:      ToTime,
	schema.TypeTimestamp: ToTimestamp,
}

// Value converts a single value to the given type
func Value(v any, t schema.Type, mode schema.Mode, opts Options) (any, error) {
	c, ok := coercers[t]
	if !ok {
		return nil, fmt.Errorf("%w: conversion to %s is not implemented", ErrNotImplemented, t)
	}
	return c(v, mode, opts)
}

// Column converts every value of a column for field. Either the whole
// column converts or an error is returned and nothing is produced.
func Column(col schema.Column, field schema.Field, opts Options) (schema.Column, error) {
	opts.Logger = opts.logger().With("field", field.Name)

	var convert coercer
	switch {
	case field.Type.IsNested():
		if len(field.Fields) == 0 {
			return nil, fmt.Errorf("%w: fields must be provided for %s field %q", schema.ErrSchema, field.Type, field.Name)
		}
		convert = passRecord
	case coercers[field.Type] == nil:
		return nil, fmt.Errorf("field %q: %w: conversion to %s is not implemented", field.Name, ErrNotImplemented, field.Type)
	case field.Mode == schema.ModeRepeated:
		convert = repeated(coercers[field.Type])
	default:
		convert = coercers[field.Type]
	}

	out := make(schema.Column, len(col))
	for i, v := range col {
		converted, err := convert(v, field.Mode, opts)
		if err != nil {
			return nil, &ColumnError{Field: field.Name, Row: i, Value: v, Err: err}
		}
		out[i] = converted
	}
	return out, nil
}

// Block converts a column-oriented block against s, column by column
func Block(data schema.Block, s schema.Schema, opts Options) (schema.Block, error) {
	if len(data) != len(s) {
		return nil, fmt.Errorf("%w: data has %d columns but schema has %d fields", schema.ErrSchema, len(data), len(s))
	}
	out := make(schema.Block, len(s))
	for i, field := range s {
		col, err := Column(data[i], field, opts)
		if err != nil {
			return nil, err
		}
		out[i] = col
	}
	return out, nil
}

// repeated converts array values element by element; a scalar becomes a one-element array
func repeated(elem coercer) coercer {
	return func(v any, _ schema.Mode, opts Options) (any, error) {
		if isNoneLike(v) {
			return nil, nil
		}
		rv := reflect.ValueOf(v)
		if _, isBytes := v.([]byte); isBytes || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			x, err := elem(v, schema.ModeNullable, opts)
			if err != nil {
				return nil, err
			}
			return []any{x}, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			x, err := elem(rv.Index(i).Interface(), schema.ModeNullable, opts)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = x
		}
		return out, nil
	}
}
