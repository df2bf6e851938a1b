// Package diff compares two snapshots table by table.
package diff

import (
	"fmt"
	"io"
	"sort"

	"github.com/koba/bqtable/internal/snapshot"
)

// DiffResult holds the complete comparison result
type DiffResult struct {
	SchemaDiffs map[string]*SchemaDiff
	DataDiffs   map[string]*DataDiff
}

// Compare compares two snapshots and returns the differences. keys names
// the columns identifying a row, used for every table that has them all.
func Compare(snap1, snap2 *snapshot.Snapshot, keys []string) *DiffResult {
	result := &DiffResult{
		SchemaDiffs: make(map[string]*SchemaDiff),
		DataDiffs:   make(map[string]*DataDiff),
	}

	// Find all unique table names
	tableNames := make(map[string]bool)
	for name := range snap1.Tables {
		tableNames[name] = true
	}
	for name := range snap2.Tables {
		tableNames[name] = true
	}

	// Compare each table
	for tableName := range tableNames {
		table1, exists1 := snap1.Tables[tableName]
		table2, exists2 := snap2.Tables[tableName]

		if !exists1 {
			// Table added in snapshot2
			result.SchemaDiffs[tableName] = &SchemaDiff{
				TableName: tableName,
				Action:    ActionAdd,
				NewSchema: table2.Schema(),
			}
			if table2.Len() > 0 {
				result.DataDiffs[tableName] = &DataDiff{
					TableName: tableName,
					NewSchema: table2.Schema(),
					RowsAdded: table2.Records(0),
				}
			}
			continue
		}

		if !exists2 {
			// Table removed in snapshot2
			result.SchemaDiffs[tableName] = &SchemaDiff{
				TableName: tableName,
				Action:    ActionDrop,
				OldSchema: table1.Schema(),
			}
			continue
		}

		// Table exists in both snapshots - compare schema
		if schemaDiff := compareSchemas(tableName, table1.Schema(), table2.Schema()); schemaDiff != nil {
			result.SchemaDiffs[tableName] = schemaDiff
		}

		// Compare data
		if dataDiff := compareData(tableName, table1, table2, keys); dataDiff != nil {
			result.DataDiffs[tableName] = dataDiff
		}
	}

	return result
}

// Empty reports whether the snapshots were identical
func (r *DiffResult) Empty() bool {
	return len(r.SchemaDiffs) == 0 && len(r.DataDiffs) == 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Display prints the diff result in a human-readable format
func Display(w io.Writer, result *DiffResult) {
	if result.Empty() {
		fmt.Fprintln(w, "No differences found.")
		return
	}

	// Display schema differences
	if len(result.SchemaDiffs) > 0 {
		fmt.Fprintln(w, "=== Schema Differences ===")
		fmt.Fprintln(w)
		for _, tableName := range sortedKeys(result.SchemaDiffs) {
			displaySchemaDiff(w, tableName, result.SchemaDiffs[tableName])
		}
	}

	// Display data differences
	if len(result.DataDiffs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Data Differences ===")
		fmt.Fprintln(w)
		for _, tableName := range sortedKeys(result.DataDiffs) {
			displayDataDiff(w, tableName, result.DataDiffs[tableName])
		}
	}
}

func displaySchemaDiff(w io.Writer, tableName string, diff *SchemaDiff) {
	fmt.Fprintf(w, "Table: %s\n", tableName)

	switch diff.Action {
	case ActionAdd:
		fmt.Fprintf(w, "  Action: ADD (new table)\n")
		fmt.Fprintf(w, "  Fields: %d\n", len(diff.NewSchema))
	case ActionDrop:
		fmt.Fprintf(w, "  Action: DROP (removed table)\n")
	case ActionModify:
		fmt.Fprintf(w, "  Action: MODIFY\n")
		fmt.Fprintf(w, "  Field changes:\n")
		for _, change := range diff.FieldChanges {
			fmt.Fprintf(w, "    - %s: %s\n", change.FieldName, change.Action)
		}
	}
	fmt.Fprintln(w)
}

func displayDataDiff(w io.Writer, tableName string, diff *DataDiff) {
	fmt.Fprintf(w, "Table: %s\n", tableName)
	fmt.Fprintf(w, "  Rows added: %d\n", len(diff.RowsAdded))
	fmt.Fprintf(w, "  Rows deleted: %d\n", len(diff.RowsDeleted))
	fmt.Fprintf(w, "  Rows modified: %d\n", len(diff.RowsModified))
	fmt.Fprintln(w)
}
