package convert

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/bqtable/internal/schema"
)

var utc = Options{Location: time.UTC}

func TestToInteger(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 7, int64(7)},
		{"numeric string", "42", int64(42)},
		{"negative string", "-5", int64(-5)},
		{"False", "False", int64(0)},
		{"integral float string", "3.0", int64(3)},
		{"decimal string truncates", "3.7", int64(3)},
		{"bytes big endian", []byte{0x01, 0x00}, int64(256)},
		{"bool", true, int64(1)},
		{"float truncates", 2.9, int64(2)},
		{"json number", json.Number("12"), int64(12)},
		{"decimal", decimal.RequireFromString("9"), int64(9)},
		{"nil", nil, nil},
		{"nan", math.NaN(), nil},
		{"None string", "None", nil},
		{"empty string", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInteger(tt.in, schema.ModeNullable, utc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToInteger_LossyConversionWarns(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	got, err := ToInteger("1.5", schema.ModeNullable, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
	assert.Contains(t, buf.String(), "converting float to integer with loss")
}

func TestToInteger_Errors(t *testing.T) {
	for _, in := range []any{"abc", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, math.Inf(1), uint64(math.MaxUint64), struct{}{}} {
		_, err := ToInteger(in, schema.ModeNullable, utc)
		require.ErrorIs(t, err, ErrValue, "input %v", in)
	}
}

func TestRequiredPolicy(t *testing.T) {
	_, err := ToInteger(nil, schema.ModeRequired, Options{})
	require.ErrorIs(t, err, ErrValue)

	got, err := ToInteger(nil, schema.ModeRequired, Options{InferRequired: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	infer := Options{InferRequired: true, Location: time.UTC}
	zeros := map[schema.Type]any{
		schema.TypeFloat:    0.0,
		schema.TypeNumeric:  decimal.Zero,
		schema.TypeBoolean:  false,
		schema.TypeString:   "",
		schema.TypeBytes:    []byte{},
		schema.TypeDate:     civil.Date{Year: 1, Month: time.January, Day: 1},
		schema.TypeDatetime: minDatetime,
		schema.TypeTime:     civil.Time{},
	}
	for typ, zero := range zeros {
		got, err := Value(nil, typ, schema.ModeRequired, infer)
		require.NoError(t, err, typ)
		assert.Equal(t, zero, got, typ)

		_, err = Value(math.NaN(), typ, schema.ModeRequired, Options{})
		require.ErrorIs(t, err, ErrValue, typ)
	}
}

func TestToFloat(t *testing.T) {
	got, err := ToFloat(nil, schema.ModeNullable, utc)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, math.IsNaN(got.(float64)))

	got, err = ToFloat("None", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.(float64)))

	got, err = ToFloat("False", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = ToFloat("2.5", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)

	got, err = ToFloat(int32(3), schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	_, err = ToFloat("two", schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrValue)
}

func TestToNumeric(t *testing.T) {
	got, err := ToNumeric("", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.True(t, got.(decimal.Decimal).IsZero())

	got, err = ToNumeric("nan", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ToNumeric("123.456789012345678901", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, "123.456789012345678901", got.(decimal.Decimal).String())

	got, err = ToNumeric(5, schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(got.(decimal.Decimal)))

	_, err = ToNumeric("1.2.3", schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrValue)
}

func TestToBoolean(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{"", false},
		{"0", false},
		{"0.0", false},
		{"False", false},
		{"false", true},
		{"yes", true},
		{"None", nil},
		{"nan", nil},
		{nil, nil},
		{0, false},
		{2, true},
		{0.0, false},
		{[]any{}, false},
		{[]any{1}, true},
		{true, true},
	}
	for _, tt := range tests {
		got, err := ToBoolean(tt.in, schema.ModeNullable, utc)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %#v", tt.in)
	}
}

func TestToString(t *testing.T) {
	got, err := ToString("a\nb", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, "a b", got)

	got, err = ToString([]byte("héllo"), schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, "héllo", got)

	got, err = ToString("None", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ToString(12, schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, "12", got)

	got, err = ToString(1.5, schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, "1.5", got)

	got, err = ToString(decimal.RequireFromString("1.10"), schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, "1.1", got)

	_, err = ToString([]byte{0xff, 0xfe}, schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrValue)
}

func TestToBytes(t *testing.T) {
	got, err := ToBytes("False", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, got)

	got, err = ToBytes("abc", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got, err = ToBytes(258, schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 1, 2}, got)

	_, err = ToBytes(int64(1)<<33, schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrValue)

	_, err = ToBytes(-1, schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrValue)

	_, err = ToBytes(1.5, schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrValue)
}

func TestToBytes_IntegerSequences(t *testing.T) {
	for name, in := range map[string]any{
		"ints":   []int{1, 2, 255},
		"any":    []any{1, int64(2), uint8(255)},
		"array":  [3]uint16{1, 2, 255},
		"int64s": []int64{1, 2, 255},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := ToBytes(in, schema.ModeNullable, utc)
			require.NoError(t, err)
			assert.Equal(t, []byte{1, 2, 255}, got)
		})
	}

	got, err := ToBytes([]any{}, schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, got)

	for _, in := range []any{[]int{256}, []int{-1}, []uint{300}, []any{"a"}, []any{1.5}, []any{nil}} {
		_, err := ToBytes(in, schema.ModeNullable, utc)
		require.ErrorIs(t, err, ErrValue, "%v", in)
	}
}

func TestToDatetime(t *testing.T) {
	want := civil.DateTime{
		Date: civil.Date{Year: 2021, Month: time.March, Day: 4},
		Time: civil.Time{Hour: 5, Minute: 6, Second: 7},
	}

	for _, in := range []any{
		"2021-03-04T05:06:07",
		"2021-03-04 05:06:07",
		[]any{2021, 3, 4, 5, 6, 7},
		[]int{2021, 3, 4, 5, 6, 7, 0},
		map[string]any{"year": 2021, "month": 3, "day": 4, "hour": 5, "minute": 6, "second": 7},
		int64(1614834367),
		float64(1614834367),
		time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC),
		want,
	} {
		got, err := ToDatetime(in, schema.ModeNullable, utc)
		require.NoError(t, err, "input %#v", in)
		assert.Equal(t, want, got, "input %#v", in)
	}

	got, err := ToDatetime("2021-03-04", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, civil.DateTime{Date: want.Date}, got)

	got, err = ToDatetime("False", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ToDatetime("not a date", schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrValue)

	_, err = ToDatetime([]any{2021, 13, 1}, schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrValue)

	_, err = ToDatetime(map[string]any{"year": 2021}, schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrValue)

	_, err = ToDatetime(struct{}{}, schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrNotImplemented)
}

func TestToDate(t *testing.T) {
	want := civil.Date{Year: 2020, Month: time.February, Day: 29}

	for _, in := range []any{"2020-02-29", "2020-02-29T23:59:59", want, civil.DateTime{Date: want, Time: civil.Time{Hour: 3}}} {
		got, err := ToDate(in, schema.ModeNullable, utc)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := ToDate(nil, schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestToTime(t *testing.T) {
	want := civil.Time{Hour: 13, Minute: 14, Second: 15}

	for _, in := range []any{"13:14:15", "2020-01-01 13:14:15", []any{13, 14, 15}, want} {
		got, err := ToTime(in, schema.ModeNullable, utc)
		require.NoError(t, err, "input %#v", in)
		assert.Equal(t, want, got)
	}

	_, err := ToTime([]any{25, 0}, schema.ModeNullable, utc)
	require.ErrorIs(t, err, ErrValue)
}

func TestToTimestamp(t *testing.T) {
	got, err := ToTimestamp(1.5, schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got)

	got, err = ToTimestamp(10, schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)

	got, err = ToTimestamp("1970-01-01T00:01:00", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, 60.0, got)

	got, err = ToTimestamp("1970-01-01T02:00:00+02:00", schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = ToTimestamp(math.NaN(), schema.ModeNullable, utc)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnsupportedTypes(t *testing.T) {
	for _, typ := range []schema.Type{schema.TypeRecord, schema.TypeStruct, schema.TypeArray, schema.TypeGeography} {
		_, err := Value("x", typ, schema.ModeNullable, utc)
		require.ErrorIs(t, err, ErrNotImplemented)
		require.Contains(t, err.Error(), string(typ))
	}

	_, err := Column(schema.Column{"POINT(1 1)"}, schema.Field{Name: "g", Type: schema.TypeGeography}, utc)
	require.ErrorIs(t, err, ErrNotImplemented)
}

func TestColumn_AllOrNothing(t *testing.T) {
	field := schema.Field{Name: "n", Type: schema.TypeInteger, Mode: schema.ModeNullable}

	out, err := Column(schema.Column{"1", 2, nil}, field, utc)
	require.NoError(t, err)
	assert.Equal(t, schema.Column{int64(1), int64(2), nil}, out)

	out, err = Column(schema.Column{"1", "x", 3}, field, utc)
	require.ErrorIs(t, err, ErrValue)
	assert.Nil(t, out)

	var colErr *ColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "n", colErr.Field)
	assert.Equal(t, 1, colErr.Row)
}

func TestColumn_Repeated(t *testing.T) {
	field := schema.Field{Name: "tags", Type: schema.TypeString, Mode: schema.ModeRepeated}

	out, err := Column(schema.Column{[]any{"a\nb", 1}, nil, "solo"}, field, utc)
	require.NoError(t, err)
	assert.Equal(t, schema.Column{[]any{"a b", "1"}, nil, []any{"solo"}}, out)
}

func TestColumn_RecordPassThrough(t *testing.T) {
	field := schema.Field{
		Name:   "r",
		Type:   schema.TypeRecord,
		Mode:   schema.ModeNullable,
		Fields: []schema.Field{{Name: "x", Type: schema.TypeInteger, Mode: schema.ModeNullable}},
	}
	nested := map[string]any{"x": "not checked"}

	out, err := Column(schema.Column{nested, `{"x": 1}`, nil}, field, utc)
	require.NoError(t, err)
	assert.Equal(t, nested, out[0])
	assert.Equal(t, map[string]any{"x": 1.0}, out[1])
	assert.Nil(t, out[2])

	again, err := Column(out, field, utc)
	require.NoError(t, err)
	assert.Equal(t, out, again)

	out, err = Column(schema.Column{`"quoted"`, "plain", `[1, 2]`}, field, utc)
	require.NoError(t, err)
	assert.Equal(t, schema.Column{`"quoted"`, "plain", []any{1.0, 2.0}}, out)

	_, err = Column(schema.Column{`{"x": `}, field, utc)
	require.ErrorIs(t, err, ErrValue)

	field.Fields = nil
	_, err = Column(schema.Column{nested}, field, utc)
	require.ErrorIs(t, err, schema.ErrSchema)
}

func TestBlock_ColumnCountMismatch(t *testing.T) {
	s := schema.Schema{{Name: "a", Type: schema.TypeString, Mode: schema.ModeNullable}}
	_, err := Block(schema.Block{{"x"}, {"y"}}, s, utc)
	require.ErrorIs(t, err, schema.ErrSchema)
	assert.True(t, strings.Contains(err.Error(), "2 columns"))
}
