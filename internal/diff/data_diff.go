package diff

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/koba/bqtable/internal/export"
	"github.com/koba/bqtable/internal/schema"
	"github.com/koba/bqtable/internal/table"
)

// DataDiff represents data differences for a table
type DataDiff struct {
	TableName    string
	Keys         []string
	OldSchema    schema.Schema
	NewSchema    schema.Schema
	RowsAdded    []schema.Row
	RowsDeleted  []schema.Row
	RowsModified []RowModification
}

// RowModification represents a modified row
type RowModification struct {
	OldRow schema.Row
	NewRow schema.Row
}

// compareData compares data between two versions of a table. Rows are
// matched on keys when every key exists in both schemas; otherwise rows
// are compared as whole values and duplicates are counted.
func compareData(tableName string, oldTable, newTable *table.Table, keys []string) *DataDiff {
	diff := &DataDiff{
		TableName:    tableName,
		OldSchema:    oldTable.Schema(),
		NewSchema:    newTable.Schema(),
		RowsAdded:    []schema.Row{},
		RowsDeleted:  []schema.Row{},
		RowsModified: []RowModification{},
	}

	oldData := oldTable.Records(0)
	newData := newTable.Records(0)

	if hasKeys(diff.OldSchema, keys) && hasKeys(diff.NewSchema, keys) {
		diff.Keys = keys
		compareKeyed(diff, oldData, newData)
	} else {
		compareWhole(diff, oldData, newData)
	}

	// Return nil if no changes
	if len(diff.RowsAdded) == 0 && len(diff.RowsDeleted) == 0 && len(diff.RowsModified) == 0 {
		return nil
	}

	return diff
}

func hasKeys(s schema.Schema, keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, key := range keys {
		if s.Index(key) < 0 {
			return false
		}
	}
	return true
}

func compareKeyed(diff *DataDiff, oldData, newData []schema.Row) {
	// Create maps keyed by the key columns
	oldRows := make(map[string]schema.Row)
	for _, row := range oldData {
		oldRows[rowKey(diff.OldSchema, row, diff.Keys)] = row
	}

	newKeys := make(map[string]bool)
	for _, newRow := range newData {
		key := rowKey(diff.NewSchema, newRow, diff.Keys)
		newKeys[key] = true
		if oldRow, exists := oldRows[key]; exists {
			if !rowsEqual(oldRow, newRow) {
				diff.RowsModified = append(diff.RowsModified, RowModification{
					OldRow: oldRow,
					NewRow: newRow,
				})
			}
		} else {
			diff.RowsAdded = append(diff.RowsAdded, newRow)
		}
	}

	// Find deleted rows
	for _, oldRow := range oldData {
		if !newKeys[rowKey(diff.OldSchema, oldRow, diff.Keys)] {
			diff.RowsDeleted = append(diff.RowsDeleted, oldRow)
		}
	}
}

func compareWhole(diff *DataDiff, oldData, newData []schema.Row) {
	oldNames := sortedNames(diff.OldSchema)
	newNames := sortedNames(diff.NewSchema)

	remaining := make(map[string]int)
	for _, row := range oldData {
		remaining[rowKey(diff.OldSchema, row, oldNames)]++
	}

	for _, row := range newData {
		key := rowKey(diff.NewSchema, row, newNames)
		if remaining[key] > 0 {
			remaining[key]--
			continue
		}
		diff.RowsAdded = append(diff.RowsAdded, row)
	}

	for _, row := range oldData {
		key := rowKey(diff.OldSchema, row, oldNames)
		if remaining[key] > 0 {
			remaining[key]--
			diff.RowsDeleted = append(diff.RowsDeleted, row)
		}
	}
}

func sortedNames(s schema.Schema) []string {
	names := s.Names()
	sort.Strings(names)
	return names
}

// rowKey generates a key for a row from the named columns
func rowKey(s schema.Schema, row schema.Row, names []string) string {
	keyParts := make([]any, 0, 2*len(names))
	for _, name := range names {
		var value any
		if i := s.Index(name); i >= 0 {
			value = export.JSONValue(s[i], row[name])
		}
		keyParts = append(keyParts, name, value)
	}

	// Use JSON encoding for consistent key generation
	keyJSON, err := json.Marshal(keyParts)
	if err != nil {
		return fmt.Sprintf("%v", keyParts)
	}

	return string(keyJSON)
}

// rowsEqual checks if two rows hold the same fields and values
func rowsEqual(a, b schema.Row) bool {
	if len(a) != len(b) {
		return false
	}

	for key, valA := range a {
		valB, exists := b[key]
		if !exists || !table.ValuesEqual(valA, valB) {
			return false
		}
	}

	return true
}
