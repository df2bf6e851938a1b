package database

import (
	"strings"

	"github.com/koba/bqtable/internal/schema"
)

// columnInfo is one column as reported by a database catalog
type columnInfo struct {
	Name     string
	Type     string
	Nullable bool
}

// typeFromSQL maps a native column type onto a warehouse type tag
func typeFromSQL(dataType string) schema.Type {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if t == "tinyint(1)" {
		return schema.TypeBoolean
	}

	base := t
	if i := strings.IndexAny(base, "( "); i >= 0 {
		base = base[:i]
	}

	switch base {
	case "int", "integer", "bigint", "smallint", "tinyint", "mediumint",
		"int2", "int4", "int8", "serial", "bigserial", "smallserial":
		return schema.TypeInteger
	case "bool", "boolean":
		return schema.TypeBoolean
	case "decimal", "numeric":
		return schema.TypeNumeric
	case "float", "double", "real", "float4", "float8":
		return schema.TypeFloat
	case "blob", "tinyblob", "mediumblob", "longblob", "bytea", "binary", "varbinary":
		return schema.TypeBytes
	case "date":
		return schema.TypeDate
	case "datetime":
		return schema.TypeDatetime
	case "timestamp", "timestamptz":
		if strings.Contains(t, "without time zone") {
			return schema.TypeDatetime
		}
		return schema.TypeTimestamp
	case "time", "timetz":
		return schema.TypeTime
	}
	return schema.TypeString
}

// schemaFromColumns builds a schema from catalog columns
func schemaFromColumns(columns []columnInfo) (schema.Schema, error) {
	fields := make(schema.Schema, len(columns))
	for i, col := range columns {
		mode := schema.ModeRequired
		if col.Nullable {
			mode = schema.ModeNullable
		}
		fields[i] = schema.Field{Name: col.Name, Type: typeFromSQL(col.Type), Mode: mode}
	}
	return schema.Normalize(fields)
}
