package diff

import (
	"strings"

	"github.com/koba/bqtable/internal/generator"
	"github.com/koba/bqtable/internal/schema"
)

// GenerateSQL generates migration SQL turning the first snapshot of a
// diff result into the second
func GenerateSQL(result *DiffResult, dialect generator.Dialect) string {
	var sqlStatements []string

	// Generate DDL statements
	ddlGen := generator.NewDDLGenerator(dialect)
	for _, tableName := range sortedKeys(result.SchemaDiffs) {
		schemaDiff := result.SchemaDiffs[tableName]
		switch schemaDiff.Action {
		case ActionAdd:
			sqlStatements = append(sqlStatements, ddlGen.CreateTable(tableName, schemaDiff.NewSchema, false))
		case ActionDrop:
			sqlStatements = append(sqlStatements, ddlGen.DropTable(tableName))
		case ActionModify:
			if stmts := ddlGen.AlterTable(tableName, schemaDiff.FieldChanges); len(stmts) > 0 {
				sqlStatements = append(sqlStatements, strings.Join(stmts, "\n"))
			}
		}
	}

	// Generate DML statements
	dmlGen := generator.NewDMLGenerator(dialect)
	for _, tableName := range sortedKeys(result.DataDiffs) {
		dataDiff := result.DataDiffs[tableName]
		var statements []string

		// Deletes run after the DDL, so match only on surviving columns
		match := dataDiff.Keys
		if len(match) == 0 {
			match = survivingNames(dataDiff)
		}
		for _, row := range dataDiff.RowsDeleted {
			statements = append(statements, dmlGen.Delete(tableName, dataDiff.OldSchema, pick(row, match)))
		}
		for _, row := range dataDiff.RowsAdded {
			statements = append(statements, dmlGen.Insert(tableName, dataDiff.NewSchema, row))
		}
		for _, mod := range dataDiff.RowsModified {
			if stmt := dmlGen.Update(tableName, dataDiff.NewSchema, dataDiff.Keys, mod.OldRow, mod.NewRow); stmt != "" {
				statements = append(statements, stmt)
			}
		}

		if len(statements) > 0 {
			sqlStatements = append(sqlStatements, strings.Join(statements, "\n"))
		}
	}

	return strings.Join(sqlStatements, "\n\n")
}

func survivingNames(d *DataDiff) []string {
	var names []string
	for _, f := range d.OldSchema {
		if d.NewSchema.Index(f.Name) >= 0 {
			names = append(names, f.Name)
		}
	}
	return names
}

func pick(row schema.Row, names []string) schema.Row {
	picked := make(schema.Row, len(names))
	for _, name := range names {
		if v, ok := row[name]; ok {
			picked[name] = v
		}
	}
	return picked
}
