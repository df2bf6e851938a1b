package generator

import (
	"fmt"
	"strings"

	"github.com/koba/bqtable/internal/schema"
)

// DDLGenerator generates DDL statements
type DDLGenerator struct {
	dialect Dialect
}

// NewDDLGenerator creates a new DDL generator
func NewDDLGenerator(dialect Dialect) *DDLGenerator {
	return &DDLGenerator{dialect: dialect}
}

// CreateTable generates CREATE TABLE for a schema
func (g *DDLGenerator) CreateTable(tableName string, s schema.Schema, ifNotExists bool) string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = g.columnDefinition(f)
	}

	guard := ""
	if ifNotExists {
		guard = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s (\n  %s\n);",
		guard,
		g.dialect.QuoteIdentifier(tableName),
		strings.Join(parts, ",\n  "),
	)
}

// DropTable generates DROP TABLE
func (g *DDLGenerator) DropTable(tableName string) string {
	return fmt.Sprintf("DROP TABLE %s;", g.dialect.QuoteIdentifier(tableName))
}

// Truncate removes every row. DELETE is used because SQLite has no TRUNCATE.
func (g *DDLGenerator) Truncate(tableName string) string {
	return fmt.Sprintf("DELETE FROM %s;", g.dialect.QuoteIdentifier(tableName))
}

// AlterTable generates the statements applying field changes to a table.
// Position changes have no DDL equivalent and are skipped.
func (g *DDLGenerator) AlterTable(tableName string, changes []schema.FieldChange) []string {
	var statements []string

	// Drop first so a re-added name does not collide
	for _, change := range changes {
		if change.Action == schema.ActionDrop {
			statements = append(statements, g.dropColumn(tableName, change.FieldName))
		}
	}

	for _, change := range changes {
		switch change.Action {
		case schema.ActionAdd:
			statements = append(statements, g.addColumn(tableName, *change.NewField))
		case schema.ActionModify:
			statements = append(statements, g.modifyColumn(tableName, *change.NewField))
		}
	}

	return statements
}

func (g *DDLGenerator) addColumn(tableName string, f schema.Field) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;",
		g.dialect.QuoteIdentifier(tableName),
		g.columnDefinition(f),
	)
}

func (g *DDLGenerator) dropColumn(tableName, columnName string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;",
		g.dialect.QuoteIdentifier(tableName),
		g.dialect.QuoteIdentifier(columnName),
	)
}

func (g *DDLGenerator) modifyColumn(tableName string, f schema.Field) string {
	switch g.dialect {
	case Postgres:
		stmt := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s",
			g.dialect.QuoteIdentifier(tableName),
			g.dialect.QuoteIdentifier(f.Name),
			g.dialect.ColumnType(f),
		)
		nullability := "DROP NOT NULL"
		if f.Mode == schema.ModeRequired {
			nullability = "SET NOT NULL"
		}
		return fmt.Sprintf("%s, ALTER COLUMN %s %s;", stmt, g.dialect.QuoteIdentifier(f.Name), nullability)
	case SQLite:
		// SQLite cannot change a column definition in place
		return fmt.Sprintf("-- cannot modify column %s of %s in sqlite", f.Name, tableName)
	}
	// MySQL
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;",
		g.dialect.QuoteIdentifier(tableName),
		g.columnDefinition(f),
	)
}

func (g *DDLGenerator) columnDefinition(f schema.Field) string {
	def := g.dialect.QuoteIdentifier(f.Name) + " " + g.dialect.ColumnType(f)
	if f.Mode == schema.ModeRequired {
		def += " NOT NULL"
	}
	return def
}
