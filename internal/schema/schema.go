package schema

// Field describes one column of a warehouse table
type Field struct {
	Name        string  `json:"name"`
	Type        Type    `json:"field_type"`
	Mode        Mode    `json:"mode"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// Equal compares two fields including their nested fields
func (f Field) Equal(other Field) bool {
	if f.Name != other.Name || f.Type != other.Type || f.Mode != other.Mode || f.Description != other.Description {
		return false
	}
	return Schema(f.Fields).Equal(Schema(other.Fields))
}

// Clone returns a deep copy of the field
func (f Field) Clone() Field {
	f.Fields = Schema(f.Fields).Clone()
	return f
}

// Dict renders the field as a plain dictionary, the shape persisted by snapshots
func (f Field) Dict() map[string]any {
	d := map[string]any{
		"name":        f.Name,
		"field_type":  string(f.Type),
		"mode":        string(f.Mode),
		"description": f.Description,
	}
	if len(f.Fields) > 0 {
		d["fields"] = Schema(f.Fields).Dicts()
	}
	return d
}

// Schema is an ordered list of fields; position defines column position
type Schema []Field

// Equal reports whether both schemas hold equal fields in the same order
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !s[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the schema
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	for i, f := range s {
		out[i] = f.Clone()
	}
	return out
}

// Names returns the field names in order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named field or -1
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Dicts renders every field as a plain dictionary
func (s Schema) Dicts() []map[string]any {
	out := make([]map[string]any, len(s))
	for i, f := range s {
		out[i] = f.Dict()
	}
	return out
}

// Column holds the values of one field, one entry per row
type Column []any

// Block is column-oriented table data aligned to a Schema by index
type Block []Column

// Rows returns the length of the longest column
func (b Block) Rows() int {
	n := 0
	for _, c := range b {
		if len(c) > n {
			n = len(c)
		}
	}
	return n
}

// Clone copies the block's columns; values themselves are shared
func (b Block) Clone() Block {
	if b == nil {
		return nil
	}
	out := make(Block, len(b))
	for i, c := range b {
		col := make(Column, len(c))
		copy(col, c)
		out[i] = col
	}
	return out
}

// Row represents a single row keyed by field name
type Row map[string]any
