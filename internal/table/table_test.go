package table

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/bqtable/internal/convert"
	"github.com/koba/bqtable/internal/schema"
)

func numberTextSchema() []map[string]any {
	return []map[string]any{
		{"name": "number", "field_type": "INTEGER"},
		{"name": "text", "field_type": "STRING"},
	}
}

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl := New()
	require.NoError(t, tbl.SetSchema(numberTextSchema()))
	return tbl
}

func TestTable_ConstructFromColumns(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.SetData([][]any{{1, 2, 3, 4}, {"a", "b", "c", "d"}}))

	assert.Len(t, tbl.Schema(), 2)
	assert.Len(t, tbl.Data(), 2)
	assert.Len(t, tbl.Rows(0), 4)
	assert.Equal(t, []any{int64(3), "c"}, tbl.Rows(0)[2])
}

func TestTable_ConstructFromRecords(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.SetData([]map[string]any{
		{"number": 1, "text": "a"},
		{"number": 2, "text": "b"},
		{"text": "c"},
	}))

	assert.Equal(t, schema.Block{{int64(1), int64(2), nil}, {"a", "b", "c"}}, tbl.Data())
}

func TestTable_SetDataWithoutSchemaKeepsRawColumns(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetData([][]any{{"1", "2"}, {"x", "y"}}))
	assert.Equal(t, schema.Block{{"1", "2"}, {"x", "y"}}, tbl.Data())

	require.NoError(t, tbl.SetSchema(numberTextSchema()))
	assert.Equal(t, schema.Block{{int64(1), int64(2)}, {"x", "y"}}, tbl.Data())

	err := New().SetData([]map[string]any{{"a": 1}})
	require.ErrorIs(t, err, ErrNoSchema)
}

func TestTable_SetDataPadsShortColumns(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.SetData([][]any{{1, 2}, {"a"}}))
	assert.Equal(t, []any{int64(2), nil}, tbl.Rows(0)[1])
}

func TestTable_AppendOnEmptyTable(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetSchema([]any{[]any{"n", "INTEGER"}, []any{"t", "STRING"}}))

	require.NoError(t, tbl.Append([]any{[]any{1, "a"}, []any{2, "b"}}))
	assert.Len(t, tbl.Data(), 2)
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), "b"}}, tbl.Rows(0))

	require.NoError(t, tbl.Append([]any{map[string]any{"n": "3", "t": "c"}}))
	assert.Equal(t, 3, tbl.Len())
}

func TestTable_AppendRepairsRowLength(t *testing.T) {
	var buf bytes.Buffer
	tbl := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, tbl.SetSchema(numberTextSchema()))

	require.NoError(t, tbl.Append([]any{[]any{1, "a", "extra"}, []any{2}}))
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), nil}}, tbl.Rows(0))
	assert.Contains(t, buf.String(), "more items than schema")
	assert.Contains(t, buf.String(), "fewer items than schema")
}

func TestTable_AppendWithoutSchema(t *testing.T) {
	err := New().Append([]any{[]any{1}})
	require.ErrorIs(t, err, ErrNoSchema)
}

func TestTable_AppendFailureLeavesDataUntouched(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.Append([]any{[]any{1, "a"}}))

	err := tbl.Append([]any{[]any{"x", "b"}})
	require.ErrorIs(t, err, convert.ErrValue)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_SetSchemaPermutation(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetSchema([]any{[]any{"a", "INTEGER"}, []any{"b", "STRING"}}))
	require.NoError(t, tbl.SetData([][]any{{1, 2}, {"x", "y"}}))

	require.NoError(t, tbl.SetSchema([]any{[]any{"b", "STRING"}, []any{"a", "INTEGER"}}))
	assert.Equal(t, schema.Block{{"x", "y"}, {int64(1), int64(2)}}, tbl.Data())
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_SetSchemaSuperset(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetSchema([]any{[]any{"a", "INTEGER"}, []any{"b", "STRING"}}))
	require.NoError(t, tbl.SetData([][]any{{1, 2}, {"x", "y"}}))

	s := tbl.Schema()
	s = append(s, schema.Field{Name: "c", Type: schema.TypeString, Mode: schema.ModeNullable})
	require.NoError(t, tbl.SetSchema(s))

	data := tbl.Data()
	require.Len(t, data, 3)
	assert.Equal(t, schema.Column{nil, nil}, data[2])
	assert.Len(t, tbl.Rows(0), 2)
}

func TestTable_SetSchemaSupersetKeepsRecordStrings(t *testing.T) {
	record := schema.Field{
		Name:   "r",
		Type:   schema.TypeRecord,
		Mode:   schema.ModeNullable,
		Fields: []schema.Field{{Name: "x", Type: schema.TypeInteger, Mode: schema.ModeNullable}},
	}
	tbl := New()
	require.NoError(t, tbl.SetSchema(schema.Schema{record}))
	require.NoError(t, tbl.SetData([][]any{{`"plain"`, "text", `{"x": 1}`}}))

	want := schema.Column{`"plain"`, "text", map[string]any{"x": 1.0}}
	assert.Equal(t, want, tbl.Data()[0])

	s := schema.Schema{record, {Name: "c", Type: schema.TypeString, Mode: schema.ModeNullable}}
	require.NoError(t, tbl.SetSchema(s))

	data := tbl.Data()
	require.Len(t, data, 2)
	assert.Equal(t, want, data[0])
	assert.Equal(t, schema.Column{nil, nil, nil}, data[1])
}

func TestTable_SetSchemaAddsFloatColumnAsNaN(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.Append([]any{[]any{1, "a"}}))

	s := append(tbl.Schema(), schema.Field{Name: "f", Type: schema.TypeFloat, Mode: schema.ModeNullable})
	require.NoError(t, tbl.SetSchema(s))
	assert.True(t, math.IsNaN(tbl.Data()[2][0].(float64)))
}

func TestTable_SetSchemaIsAtomic(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.Append([]any{[]any{1, "a"}}))
	before := tbl.Schema()

	// removing a field is rejected
	err := tbl.SetSchema([]any{[]any{"number", "INTEGER"}})
	require.ErrorIs(t, err, schema.ErrSchema)

	// the new REQUIRED column cannot be filled with nulls
	err = tbl.SetSchema(append(tbl.Schema(), schema.Field{Name: "z", Type: schema.TypeString, Mode: schema.ModeRequired}))
	require.ErrorIs(t, err, convert.ErrValue)

	assert.True(t, before.Equal(tbl.Schema()))
	assert.Equal(t, schema.Block{{int64(1)}, {"a"}}, tbl.Data())
}

func TestTable_SetSchemaInferRequired(t *testing.T) {
	tbl := New(WithInferRequired(true))
	require.NoError(t, tbl.SetSchema(numberTextSchema()))
	require.NoError(t, tbl.Append([]any{[]any{1, "a"}}))

	err := tbl.SetSchema(append(tbl.Schema(), schema.Field{Name: "z", Type: schema.TypeInteger, Mode: schema.ModeRequired}))
	require.NoError(t, err)
	assert.Equal(t, schema.Column{int64(0)}, tbl.Data()[2])
}

func TestTable_SetSchemaIdempotent(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.Append([]any{[]any{1, "a"}}))
	data := tbl.data

	require.NoError(t, tbl.SetSchema(numberTextSchema()))
	// the stored block is the same one: no reconversion happened
	assert.Same(t, &data[0][0], &tbl.data[0][0])
}

func TestTable_SetSchemaChangesType(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.Append([]any{[]any{1, "2"}}))

	require.NoError(t, tbl.SetSchema([]any{[]any{"number", "STRING"}, []any{"text", "INTEGER"}}))
	assert.Equal(t, [][]any{{"1", int64(2)}}, tbl.Rows(0))
}

func TestTable_Rename(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetSchema([]any{
		map[string]any{"name": "a", "field_type": "INTEGER", "mode": "REQUIRED", "description": "doc"},
		[]any{"b", "STRING"},
	}))
	require.NoError(t, tbl.Append([]any{[]any{1, "x"}}))

	require.NoError(t, tbl.Rename(map[string]string{"a": "id"}))
	s := tbl.Schema()
	assert.Equal(t, schema.Field{Name: "id", Type: schema.TypeInteger, Mode: schema.ModeRequired, Description: "doc"}, s[0])
	assert.Equal(t, []schema.Row{{"id": int64(1), "b": "x"}}, tbl.Records(0))

	err := tbl.Rename(map[string]string{"missing": "x"})
	require.ErrorIs(t, err, schema.ErrLookup)

	err = tbl.Rename(map[string]string{"id": "b"})
	require.ErrorIs(t, err, schema.ErrSchema)

	require.NoError(t, tbl.Rename(map[string]string{"id": "b", "b": "id"}))
	assert.Equal(t, []string{"b", "id"}, tbl.Schema().Names())
}

func TestTable_Project(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.Append([]any{[]any{1, "a"}, []any{2, "b"}}))

	require.NoError(t, tbl.Project("text"))
	assert.Equal(t, []string{"text"}, tbl.Schema().Names())
	assert.Equal(t, schema.Block{{"a", "b"}}, tbl.Data())

	err := tbl.Project("number")
	require.ErrorIs(t, err, schema.ErrLookup)
}

func TestTable_RowsLimitAndShapes(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.Append([]any{[]any{1, "a"}, []any{2, "b"}, []any{3, "c"}}))

	assert.Len(t, tbl.Rows(2), 2)
	assert.Len(t, tbl.Rows(10), 3)
	assert.Equal(t, []any{schema.Row{"number": int64(1), "text": "a"}}, tbl.RowsAs(1, RowTypeDict))
	assert.Equal(t, []any{[]any{int64(1), "a"}}, tbl.RowsAs(1, RowTypeList))

	_, err := ParseRowType("tuple")
	require.Error(t, err)
}

func TestTable_RowsRoundTrip(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetSchema([]any{
		[]any{"i", "INTEGER"},
		[]any{"f", "FLOAT"},
		[]any{"s", "STRING"},
		[]any{"d", "DATE"},
	}))
	require.NoError(t, tbl.SetData([][]any{
		{1, nil, 3},
		{1.5, nil, "2"},
		{"x", "y", nil},
		{"2020-01-01", nil, "2021-12-31"},
	}))

	rows := make([]any, 0, tbl.Len())
	for _, r := range tbl.Rows(0) {
		rows = append(rows, r)
	}

	back := New()
	require.NoError(t, back.SetSchema(tbl.Schema()))
	require.NoError(t, back.Append(rows))
	assert.True(t, tbl.Equal(back))
}
