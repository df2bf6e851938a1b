package diff

import (
	"github.com/koba/bqtable/internal/schema"
)

// Action represents the type of change to a table
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionDrop   Action = "DROP"
	ActionModify Action = "MODIFY"
)

// SchemaDiff represents schema differences for a table
type SchemaDiff struct {
	TableName    string
	Action       Action
	OldSchema    schema.Schema
	NewSchema    schema.Schema
	FieldChanges []schema.FieldChange
}

// compareSchemas compares two table schemas; nil means no change
func compareSchemas(tableName string, old, new schema.Schema) *SchemaDiff {
	changes := schema.Diff(old, new)
	if len(changes) == 0 {
		return nil
	}

	return &SchemaDiff{
		TableName:    tableName,
		Action:       ActionModify,
		OldSchema:    old,
		NewSchema:    new,
		FieldChanges: changes,
	}
}
