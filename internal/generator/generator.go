// Package generator renders SQL for the relational warehouses: table DDL
// derived from a schema, and DML for loads and snapshot migrations.
package generator

import (
	"fmt"
	"strings"

	"github.com/koba/bqtable/internal/schema"
)

// Dialect selects SQL syntax
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect resolves a dialect name
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported SQL dialect: %s", name)
}

// QuoteIdentifier quotes a table or column name
func (d Dialect) QuoteIdentifier(name string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteIdentifiers quotes every name
func (d Dialect) QuoteIdentifiers(names []string) []string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = d.QuoteIdentifier(name)
	}
	return quoted
}

// Placeholder returns the bind parameter for the n-th argument (1-based)
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// ColumnType maps a field onto the dialect's column type.
// Repeated and nested fields are stored as JSON.
func (d Dialect) ColumnType(f schema.Field) string {
	if f.Mode == schema.ModeRepeated || f.Type.IsNested() || f.Type == schema.TypeArray {
		switch d {
		case MySQL:
			return "JSON"
		case Postgres:
			return "JSONB"
		}
		return "TEXT"
	}

	switch f.Type {
	case schema.TypeInteger:
		if d == SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case schema.TypeFloat:
		switch d {
		case MySQL:
			return "DOUBLE"
		case Postgres:
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case schema.TypeNumeric:
		if d == MySQL {
			return "DECIMAL(38,9)"
		}
		return "NUMERIC(38,9)"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeBytes:
		switch d {
		case MySQL:
			return "LONGBLOB"
		case Postgres:
			return "BYTEA"
		}
		return "BLOB"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeDatetime:
		switch d {
		case MySQL:
			return "DATETIME(6)"
		case Postgres:
			return "TIMESTAMP"
		}
		return "DATETIME"
	case schema.TypeTime:
		if d == MySQL {
			return "TIME(6)"
		}
		return "TIME"
	case schema.TypeTimestamp:
		switch d {
		case MySQL:
			return "TIMESTAMP(6)"
		case Postgres:
			return "TIMESTAMPTZ"
		}
		return "TIMESTAMP"
	}
	return "TEXT"
}
