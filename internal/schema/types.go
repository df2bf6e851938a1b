package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Type is a warehouse column type tag
type Type string

const (
	TypeInteger   Type = "INTEGER"
	TypeFloat     Type = "FLOAT"
	TypeNumeric   Type = "NUMERIC"
	TypeBoolean   Type = "BOOLEAN"
	TypeString    Type = "STRING"
	TypeBytes     Type = "BYTES"
	TypeDate      Type = "DATE"
	TypeDatetime  Type = "DATETIME"
	TypeTime      Type = "TIME"
	TypeTimestamp Type = "TIMESTAMP"
	TypeRecord    Type = "RECORD"
	TypeStruct    Type = "STRUCT"
	TypeGeography Type = "GEOGRAPHY"
	TypeArray     Type = "ARRAY"
)

// Types lists every type tag a schema may carry.
var Types = []Type{
	TypeInteger, TypeFloat, TypeNumeric, TypeBoolean, TypeString, TypeBytes,
	TypeDate, TypeDatetime, TypeTime, TypeTimestamp, TypeRecord, TypeStruct,
	TypeGeography, TypeArray,
}

// legacy and standard-SQL spellings accepted on input
var typeAliases = map[string]Type{
	"INT64":   TypeInteger,
	"FLOAT64": TypeFloat,
	"BOOL":    TypeBoolean,
	"DECIMAL": TypeNumeric,
}

// IsNested reports whether the type carries child fields
func (t Type) IsNested() bool {
	return t == TypeRecord || t == TypeStruct
}

// ParseType resolves a type tag, case-insensitively
func ParseType(s string) (Type, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range Types {
		if string(t) == name {
			return t, nil
		}
	}
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q is not a valid field type, must be one of %s", ErrSchema, s, validTypeNames())
}

func validTypeNames() string {
	names := make([]string, 0, len(Types))
	for _, t := range Types {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Mode is the nullability contract of a field
type Mode string

const (
	ModeNullable Mode = "NULLABLE"
	ModeRequired Mode = "REQUIRED"
	ModeRepeated Mode = "REPEATED"
)

// ParseMode resolves a mode; an empty string means NULLABLE
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(ModeNullable):
		return ModeNullable, nil
	case string(ModeRequired):
		return ModeRequired, nil
	case string(ModeRepeated):
		return ModeRepeated, nil
	default:
		return "", fmt.Errorf("%w: %q is not a valid mode, must be one of NULLABLE, REPEATED, REQUIRED", ErrSchema, s)
	}
}
