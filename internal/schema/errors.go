package schema

import "errors"

var (
	// ErrSchema marks a malformed, ambiguous or unsupported schema
	ErrSchema = errors.New("schema error")

	// ErrLookup marks a reference to a field that does not exist
	ErrLookup = errors.New("field not found")
)
