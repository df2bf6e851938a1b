package schema

import (
	"fmt"
	"strings"
)

// Reconcile realigns data bound to oldSchema so that it lines up with
// newSchema. Fields new in newSchema get a null column of the current
// row count; every column is then moved to its new position by name.
// Existing rows are never dropped and no values are invented beyond
// the null padding.
//
// Removing a field is rejected: use a rename or an explicit projection.
func Reconcile(oldSchema Schema, oldData Block, newSchema Schema) (Block, error) {
	if len(oldData) != len(oldSchema) {
		return nil, fmt.Errorf("%w: data has %d columns but schema has %d fields", ErrSchema, len(oldData), len(oldSchema))
	}
	if err := checkUniqueNames(oldSchema); err != nil {
		return nil, err
	}
	if err := checkUniqueNames(newSchema); err != nil {
		return nil, err
	}

	var dropped []string
	for _, change := range Diff(oldSchema, newSchema) {
		if change.Action == ActionDrop {
			dropped = append(dropped, change.FieldName)
		}
	}
	if len(dropped) > 0 {
		return nil, fmt.Errorf("%w: schema field removed (%s); use rename or explicit projection", ErrSchema, strings.Join(dropped, ", "))
	}

	// Extend a working copy of the old layout with null columns for added fields
	rows := oldData.Rows()
	names := oldSchema.Names()
	columns := oldData.Clone()
	for _, field := range newSchema {
		if oldSchema.Index(field.Name) >= 0 {
			continue
		}
		names = append(names, field.Name)
		columns = append(columns, make(Column, rows))
	}

	// Permute into the new order
	positions := make(map[string]int, len(names))
	for i, name := range names {
		positions[name] = i
	}
	out := make(Block, len(newSchema))
	for i, field := range newSchema {
		pos, ok := positions[field.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q is absent from both schemas", ErrLookup, field.Name)
		}
		out[i] = columns[pos]
	}
	return out, nil
}

func checkUniqueNames(s Schema) error {
	seen := make(map[string]bool, len(s))
	for _, f := range s {
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field name %q cannot be reconciled", ErrSchema, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}
