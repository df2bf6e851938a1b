package diff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/bqtable/internal/generator"
	"github.com/koba/bqtable/internal/schema"
	"github.com/koba/bqtable/internal/snapshot"
	"github.com/koba/bqtable/internal/table"
)

func newTable(t *testing.T, fields []any, rows ...[]any) *table.Table {
	t.Helper()
	tbl := table.New()
	require.NoError(t, tbl.SetSchema(fields))
	batch := make([]any, len(rows))
	for i, row := range rows {
		batch[i] = row
	}
	require.NoError(t, tbl.Append(batch))
	return tbl
}

func userFields(extra ...any) []any {
	return append([]any{[]any{"id", "INTEGER"}, []any{"name", "STRING"}}, extra...)
}

func TestCompareIdentical(t *testing.T) {
	snap1 := snapshot.New()
	snap1.Tables["users"] = newTable(t, userFields(), []any{1, "a"})
	snap2 := snapshot.New()
	snap2.Tables["users"] = newTable(t, userFields(), []any{1, "a"})

	result := Compare(snap1, snap2, nil)
	assert.True(t, result.Empty())

	var buf bytes.Buffer
	Display(&buf, result)
	assert.Equal(t, "No differences found.\n", buf.String())
}

func TestCompareTablesAddedAndDropped(t *testing.T) {
	snap1 := snapshot.New()
	snap1.Tables["gone"] = newTable(t, []any{[]any{"v", "INTEGER"}}, []any{1})
	snap2 := snapshot.New()
	snap2.Tables["extra"] = newTable(t, []any{[]any{"v", "STRING"}}, []any{"x"})

	result := Compare(snap1, snap2, nil)
	require.Contains(t, result.SchemaDiffs, "gone")
	require.Contains(t, result.SchemaDiffs, "extra")
	assert.Equal(t, ActionDrop, result.SchemaDiffs["gone"].Action)
	assert.Equal(t, ActionAdd, result.SchemaDiffs["extra"].Action)
	assert.Len(t, result.DataDiffs["extra"].RowsAdded, 1)
	assert.NotContains(t, result.DataDiffs, "gone")

	sql := GenerateSQL(result, generator.SQLite)
	assert.Contains(t, sql, "CREATE TABLE \"extra\" (\n  \"v\" TEXT\n);")
	assert.Contains(t, sql, `DROP TABLE "gone";`)
	assert.Contains(t, sql, `INSERT INTO "extra" ("v") VALUES ('x');`)
}

func TestCompareWholeRows(t *testing.T) {
	fields := []any{[]any{"v", "INTEGER"}}
	snap1 := snapshot.New()
	snap1.Tables["t"] = newTable(t, fields, []any{1}, []any{1}, []any{2})
	snap2 := snapshot.New()
	snap2.Tables["t"] = newTable(t, fields, []any{1}, []any{3})

	result := Compare(snap1, snap2, nil)
	assert.NotContains(t, result.SchemaDiffs, "t")

	d := result.DataDiffs["t"]
	require.NotNil(t, d)
	assert.Equal(t, []schema.Row{{"v": int64(3)}}, d.RowsAdded)
	assert.Equal(t, []schema.Row{{"v": int64(1)}, {"v": int64(2)}}, d.RowsDeleted)
	assert.Empty(t, d.RowsModified)

	sql := GenerateSQL(result, generator.SQLite)
	assert.Equal(t, "DELETE FROM \"t\" WHERE \"v\" = 1;\nDELETE FROM \"t\" WHERE \"v\" = 2;\nINSERT INTO \"t\" (\"v\") VALUES (3);", sql)
}

func TestCompareKeyedRows(t *testing.T) {
	snap1 := snapshot.New()
	snap1.Tables["users"] = newTable(t, userFields(), []any{1, "a"}, []any{2, "b"}, []any{4, "z"})
	snap2 := snapshot.New()
	snap2.Tables["users"] = newTable(t, userFields(), []any{1, "a"}, []any{2, "c"}, []any{3, "d"})

	result := Compare(snap1, snap2, []string{"id"})
	d := result.DataDiffs["users"]
	require.NotNil(t, d)
	assert.Equal(t, []string{"id"}, d.Keys)
	assert.Equal(t, []schema.Row{{"id": int64(3), "name": "d"}}, d.RowsAdded)
	assert.Equal(t, []schema.Row{{"id": int64(4), "name": "z"}}, d.RowsDeleted)
	require.Len(t, d.RowsModified, 1)
	assert.Equal(t, "c", d.RowsModified[0].NewRow["name"])

	sql := GenerateSQL(result, generator.Postgres)
	assert.Contains(t, sql, `DELETE FROM "users" WHERE "id" = 4;`)
	assert.Contains(t, sql, `INSERT INTO "users" ("id", "name") VALUES (3, 'd');`)
	assert.Contains(t, sql, `UPDATE "users" SET "name" = 'c' WHERE "id" = 2;`)
}

func TestCompareSchemaChange(t *testing.T) {
	snap1 := snapshot.New()
	snap1.Tables["users"] = newTable(t, userFields(), []any{1, "a"})
	snap2 := snapshot.New()
	snap2.Tables["users"] = newTable(t, userFields([]any{"age", "INTEGER"}), []any{1, "a", 30})

	result := Compare(snap1, snap2, []string{"id"})
	sd := result.SchemaDiffs["users"]
	require.NotNil(t, sd)
	assert.Equal(t, ActionModify, sd.Action)
	require.Len(t, sd.FieldChanges, 1)
	assert.Equal(t, schema.ActionAdd, sd.FieldChanges[0].Action)

	sql := GenerateSQL(result, generator.MySQL)
	assert.Contains(t, sql, "ALTER TABLE `users` ADD COLUMN `age` BIGINT;")
	assert.Contains(t, sql, "UPDATE `users` SET `age` = 30 WHERE `id` = 1;")

	var buf bytes.Buffer
	Display(&buf, result)
	out := buf.String()
	assert.Contains(t, out, "=== Schema Differences ===")
	assert.Contains(t, out, "    - age: ADD")
	assert.Contains(t, out, "=== Data Differences ===")
	assert.Contains(t, out, "  Rows modified: 1")
}
