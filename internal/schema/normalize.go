package schema

import (
	"encoding/json"
	"fmt"
)

// Normalize turns a raw schema description into a validated Schema.
//
// raw may be a Schema, a []Field, a []map[string]any or a []any whose
// elements are each one of:
//   - a Field or *Field
//   - a positional []any: name, type, mode, description, fields
//   - a map[string]any with keys name, field_type (or type), mode,
//     description and fields
//
// Output order matches input order.
func Normalize(raw any) (Schema, error) {
	var elems []any
	switch v := raw.(type) {
	case nil:
		return Schema{}, nil
	case Schema:
		elems = make([]any, len(v))
		for i := range v {
			elems[i] = v[i]
		}
	case []Field:
		elems = make([]any, len(v))
		for i := range v {
			elems[i] = v[i]
		}
	case []map[string]any:
		elems = make([]any, len(v))
		for i := range v {
			elems[i] = v[i]
		}
	case []any:
		elems = v
	default:
		return nil, fmt.Errorf("%w: unsupported schema description %T", ErrSchema, raw)
	}
	return normalizeFields(elems, "")
}

// ParseJSON decodes a JSON array of field objects and normalizes it
func ParseJSON(data []byte) (Schema, error) {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode schema: %v", ErrSchema, err)
	}
	return Normalize(raw)
}

func normalizeFields(elems []any, parent string) (Schema, error) {
	out := make(Schema, 0, len(elems))
	seen := make(map[string]bool, len(elems))
	for i, elem := range elems {
		field, err := normalizeField(elem, parent)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		if seen[field.Name] {
			return nil, fmt.Errorf("%w: duplicate field name %q", ErrSchema, qualified(parent, field.Name))
		}
		seen[field.Name] = true
		out = append(out, field)
	}
	return out, nil
}

func normalizeField(elem any, parent string) (Field, error) {
	var (
		name, typ, mode, desc string
		children              any
		err                   error
	)

	switch v := elem.(type) {
	case Field:
		name, typ, mode, desc = v.Name, string(v.Type), string(v.Mode), v.Description
		if v.Fields != nil {
			children = v.Fields
		}
	case *Field:
		if v == nil {
			return Field{}, fmt.Errorf("%w: nil field", ErrSchema)
		}
		return normalizeField(*v, parent)
	case []any:
		if len(v) < 2 || len(v) > 5 {
			return Field{}, fmt.Errorf("%w: positional field needs 2 to 5 items, got %d", ErrSchema, len(v))
		}
		parts := make([]string, 4)
		for i := 0; i < len(v) && i < 4; i++ {
			if parts[i], err = stringItem(v[i], i); err != nil {
				return Field{}, err
			}
		}
		name, typ, mode, desc = parts[0], parts[1], parts[2], parts[3]
		if len(v) == 5 {
			children = v[4]
		}
	case map[string]any:
		if name, err = stringKey(v, "name"); err != nil {
			return Field{}, err
		}
		if typ, err = stringKey(v, "field_type"); err != nil {
			return Field{}, err
		}
		if typ == "" {
			if typ, err = stringKey(v, "type"); err != nil {
				return Field{}, err
			}
		}
		if mode, err = stringKey(v, "mode"); err != nil {
			return Field{}, err
		}
		if desc, err = stringKey(v, "description"); err != nil {
			return Field{}, err
		}
		children = v["fields"]
	default:
		return Field{}, fmt.Errorf("%w: unsupported field description %T", ErrSchema, elem)
	}

	if name == "" {
		return Field{}, fmt.Errorf("%w: field name is required", ErrSchema)
	}

	field := Field{Name: name, Description: desc}
	if field.Type, err = ParseType(typ); err != nil {
		return Field{}, fmt.Errorf("field %q: %w", qualified(parent, name), err)
	}
	if field.Mode, err = ParseMode(mode); err != nil {
		return Field{}, fmt.Errorf("field %q: %w", qualified(parent, name), err)
	}

	nested, err := childElems(children)
	if err != nil {
		return Field{}, fmt.Errorf("field %q: %w", qualified(parent, name), err)
	}

	if field.Type.IsNested() {
		if len(nested) == 0 {
			return Field{}, fmt.Errorf("%w: field %q: missing nested field list for %s type", ErrSchema, qualified(parent, name), field.Type)
		}
		if field.Fields, err = normalizeFields(nested, qualified(parent, name)); err != nil {
			return Field{}, err
		}
	} else if len(nested) > 0 {
		return Field{}, fmt.Errorf("%w: field %q: nested fields are only allowed for RECORD and STRUCT, not %s", ErrSchema, qualified(parent, name), field.Type)
	}

	return field, nil
}

func childElems(children any) ([]any, error) {
	switch v := children.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case Schema:
		return childElems([]Field(v))
	case []Field:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported nested field list %T", ErrSchema, children)
	}
}

func stringKey(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrSchema, key, v)
	}
	return s, nil
}

func stringItem(v any, pos int) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case Type:
		return string(s), nil
	case Mode:
		return string(s), nil
	default:
		return "", fmt.Errorf("%w: positional item %d must be a string, got %T", ErrSchema, pos, v)
	}
}

func qualified(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
