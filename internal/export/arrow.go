package export

import (
	"fmt"
	"io"
	"math"
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"

	"github.com/koba/bqtable/internal/schema"
	"github.com/koba/bqtable/internal/table"
)

const (
	numericPrecision = 38
	numericScale     = 9
)

var numericType = &arrow.Decimal128Type{Precision: numericPrecision, Scale: numericScale}

// ArrowSchema maps a table schema onto Arrow column types. Repeated and
// nested fields are carried as JSON text.
func ArrowSchema(s schema.Schema) *arrow.Schema {
	fields := make([]arrow.Field, len(s))
	for i, f := range s {
		fields[i] = arrow.Field{
			Name:     f.Name,
			Type:     arrowType(f),
			Nullable: f.Mode != schema.ModeRequired,
		}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(f schema.Field) arrow.DataType {
	if f.Mode == schema.ModeRepeated {
		return arrow.BinaryTypes.String
	}
	switch f.Type {
	case schema.TypeInteger:
		return arrow.PrimitiveTypes.Int64
	case schema.TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case schema.TypeNumeric:
		return numericType
	case schema.TypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	case schema.TypeBytes:
		return arrow.BinaryTypes.Binary
	case schema.TypeDate:
		return arrow.FixedWidthTypes.Date32
	case schema.TypeDatetime:
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case schema.TypeTime:
		return arrow.FixedWidthTypes.Time64us
	case schema.TypeTimestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	default:
		return arrow.BinaryTypes.String
	}
}

// Record builds a single Arrow record holding every row of t.
// The caller releases it.
func Record(t *table.Table, mem memory.Allocator) (arrow.Record, error) {
	s := t.Schema()
	if len(s) == 0 && len(t.Data()) > 0 {
		return nil, table.ErrNoSchema
	}

	b := array.NewRecordBuilder(mem, ArrowSchema(s))
	defer b.Release()

	for i, col := range t.Data() {
		fb := b.Field(i)
		for r, v := range col {
			if err := appendValue(fb, s[i], v); err != nil {
				return nil, fmt.Errorf("failed to append %s row %d: %w", s[i].Name, r, err)
			}
		}
	}
	return b.NewRecord(), nil
}

func appendValue(fb array.Builder, f schema.Field, v any) error {
	if IsNull(v) {
		fb.AppendNull()
		return nil
	}

	// strings, repeated and nested values all travel as text
	if sb, ok := fb.(*array.StringBuilder); ok {
		s, _ := Text(f, v)
		sb.Append(s)
		return nil
	}

	switch b := fb.(type) {
	case *array.Int64Builder:
		if n, ok := v.(int64); ok {
			b.Append(n)
			return nil
		}
	case *array.Float64Builder:
		if x, ok := v.(float64); ok {
			b.Append(x)
			return nil
		}
	case *array.BooleanBuilder:
		if x, ok := v.(bool); ok {
			b.Append(x)
			return nil
		}
	case *array.BinaryBuilder:
		if x, ok := v.([]byte); ok {
			b.Append(x)
			return nil
		}
	case *array.Decimal128Builder:
		if d, ok := v.(decimal.Decimal); ok {
			n, err := decimalToNum(d)
			if err != nil {
				return err
			}
			b.Append(n)
			return nil
		}
	case *array.Date32Builder:
		if d, ok := v.(civil.Date); ok {
			b.Append(arrow.Date32FromTime(d.In(time.UTC)))
			return nil
		}
	case *array.Time64Builder:
		if x, ok := v.(civil.Time); ok {
			micros := int64(x.Hour)*3600e6 + int64(x.Minute)*60e6 + int64(x.Second)*1e6 + int64(x.Nanosecond/1000)
			b.Append(arrow.Time64(micros))
			return nil
		}
	case *array.TimestampBuilder:
		switch x := v.(type) {
		case civil.DateTime:
			b.Append(arrow.Timestamp(x.In(time.UTC).UnixMicro()))
			return nil
		case float64:
			b.Append(arrow.Timestamp(int64(math.Round(x * 1e6))))
			return nil
		}
	}
	return fmt.Errorf("unexpected %T value for %s field", v, f.Type)
}

func decimalToNum(d decimal.Decimal) (decimal128.Num, error) {
	scaled := d.Shift(numericScale).BigInt()
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(numericPrecision), nil)
	if new(big.Int).Abs(scaled).Cmp(limit) >= 0 {
		return decimal128.Num{}, fmt.Errorf("%s exceeds NUMERIC precision", d)
	}
	return decimal128.FromBigInt(scaled), nil
}

// WriteArrow writes t as an Arrow IPC stream
func WriteArrow(w io.Writer, t *table.Table) error {
	mem := memory.NewGoAllocator()
	rec, err := Record(t, mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	return writer.Close()
}
