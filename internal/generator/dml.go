package generator

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/koba/bqtable/internal/export"
	"github.com/koba/bqtable/internal/schema"
	"github.com/koba/bqtable/internal/table"
)

// DMLGenerator generates DML statements
type DMLGenerator struct {
	dialect Dialect
}

// NewDMLGenerator creates a new DML generator
func NewDMLGenerator(dialect Dialect) *DMLGenerator {
	return &DMLGenerator{dialect: dialect}
}

// InsertStatement generates a parameterized INSERT for the given columns
func (g *DMLGenerator) InsertStatement(tableName string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = g.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		g.dialect.QuoteIdentifier(tableName),
		strings.Join(g.dialect.QuoteIdentifiers(columns), ", "),
		strings.Join(placeholders, ", "),
	)
}

// Insert generates an INSERT with literal values, in schema order
func (g *DMLGenerator) Insert(tableName string, s schema.Schema, row schema.Row) string {
	var columns []string
	var values []string

	for _, f := range s {
		v, ok := row[f.Name]
		if !ok {
			continue
		}
		columns = append(columns, g.dialect.QuoteIdentifier(f.Name))
		values = append(values, g.FormatValue(f, v))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		g.dialect.QuoteIdentifier(tableName),
		strings.Join(columns, ", "),
		strings.Join(values, ", "),
	)
}

// Delete generates a DELETE matching every field of row
func (g *DMLGenerator) Delete(tableName string, s schema.Schema, row schema.Row) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s;",
		g.dialect.QuoteIdentifier(tableName),
		g.buildWhereClause(s, row),
	)
}

// Update generates an UPDATE setting the fields that changed, matched on keys.
// It returns "" when nothing changed.
func (g *DMLGenerator) Update(tableName string, s schema.Schema, keys []string, oldRow, newRow schema.Row) string {
	var setClauses []string

	for _, f := range s {
		newVal, ok := newRow[f.Name]
		if !ok {
			continue
		}
		oldVal, exists := oldRow[f.Name]
		if !exists || !table.ValuesEqual(oldVal, newVal) {
			setClauses = append(setClauses,
				fmt.Sprintf("%s = %s", g.dialect.QuoteIdentifier(f.Name), g.FormatValue(f, newVal)),
			)
		}
	}

	if len(setClauses) == 0 {
		return ""
	}

	where := schema.Row{}
	for _, key := range keys {
		where[key] = oldRow[key]
	}

	return fmt.Sprintf("UPDATE %s SET %s WHERE %s;",
		g.dialect.QuoteIdentifier(tableName),
		strings.Join(setClauses, ", "),
		g.buildWhereClause(s, where),
	)
}

func (g *DMLGenerator) buildWhereClause(s schema.Schema, row schema.Row) string {
	var conditions []string

	for _, f := range s {
		v, ok := row[f.Name]
		if !ok {
			continue
		}
		if export.IsNull(v) {
			conditions = append(conditions,
				fmt.Sprintf("%s IS NULL", g.dialect.QuoteIdentifier(f.Name)),
			)
		} else {
			conditions = append(conditions,
				fmt.Sprintf("%s = %s", g.dialect.QuoteIdentifier(f.Name), g.FormatValue(f, v)),
			)
		}
	}

	return strings.Join(conditions, " AND ")
}

// FormatValue renders a converted value as a SQL literal
func (g *DMLGenerator) FormatValue(f schema.Field, v any) string {
	if export.IsNull(v) {
		return "NULL"
	}
	if f.Mode == schema.ModeRepeated || f.Type.IsNested() {
		text, _ := export.Text(f, v)
		return quoteString(text)
	}

	switch x := v.(type) {
	case string:
		return quoteString(x)
	case []byte:
		if g.dialect == Postgres {
			return fmt.Sprintf("decode('%s', 'hex')", hex.EncodeToString(x))
		}
		return fmt.Sprintf("X'%s'", hex.EncodeToString(x))
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if f.Type == schema.TypeTimestamp {
			return quoteString(export.FormatTimestamp(x))
		}
		if math.IsInf(x, 0) {
			return quoteString(strconv.FormatFloat(x, 'g', -1, 64))
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case decimal.Decimal:
		return x.String()
	}

	text, _ := export.Text(f, v)
	return quoteString(text)
}

func quoteString(s string) string {
	// Escape single quotes
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
