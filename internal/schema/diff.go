package schema

// Action represents the type of change
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionDrop   Action = "DROP"
	ActionModify Action = "MODIFY"
	ActionMove   Action = "MOVE"
)

// FieldChange represents a change to a top-level field
type FieldChange struct {
	FieldName   string
	Action      Action
	OldField    *Field
	NewField    *Field
	OldPosition int
	NewPosition int
}

// Diff compares two schemas field by field, keyed by name.
// Changes are reported in new-schema order followed by dropped fields
// in old-schema order.
func Diff(old, new Schema) []FieldChange {
	oldFields := make(map[string]int, len(old))
	for i := range old {
		oldFields[old[i].Name] = i
	}
	newFields := make(map[string]int, len(new))
	for i := range new {
		newFields[new[i].Name] = i
	}

	var changes []FieldChange

	// Find added, modified and moved fields
	for newPos := range new {
		newField := &new[newPos]
		oldPos, exists := oldFields[newField.Name]
		if !exists {
			changes = append(changes, FieldChange{
				FieldName:   newField.Name,
				Action:      ActionAdd,
				NewField:    newField,
				OldPosition: -1,
				NewPosition: newPos,
			})
			continue
		}

		oldField := &old[oldPos]
		if !fieldsEquivalent(oldField, newField) {
			changes = append(changes, FieldChange{
				FieldName:   newField.Name,
				Action:      ActionModify,
				OldField:    oldField,
				NewField:    newField,
				OldPosition: oldPos,
				NewPosition: newPos,
			})
		}
		if oldPos != newPos {
			changes = append(changes, FieldChange{
				FieldName:   newField.Name,
				Action:      ActionMove,
				OldField:    oldField,
				NewField:    newField,
				OldPosition: oldPos,
				NewPosition: newPos,
			})
		}
	}

	// Find dropped fields
	for oldPos := range old {
		if _, exists := newFields[old[oldPos].Name]; !exists {
			changes = append(changes, FieldChange{
				FieldName:   old[oldPos].Name,
				Action:      ActionDrop,
				OldField:    &old[oldPos],
				OldPosition: oldPos,
				NewPosition: -1,
			})
		}
	}

	return changes
}

// fieldsEquivalent ignores descriptions; they never affect stored values
func fieldsEquivalent(a, b *Field) bool {
	if a.Type != b.Type || a.Mode != b.Mode {
		return false
	}
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Name != b.Fields[i].Name || !fieldsEquivalent(&a.Fields[i], &b.Fields[i]) {
			return false
		}
	}
	return true
}
