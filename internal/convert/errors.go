package convert

import (
	"errors"
	"fmt"
)

var (
	// ErrValue marks a value that cannot satisfy its field's type or mode
	ErrValue = errors.New("invalid value")

	// ErrNotImplemented marks a type the engine cannot coerce into
	ErrNotImplemented = errors.New("not implemented")
)

// ColumnError reports the first value of a column that failed to convert
type ColumnError struct {
	Field string
	Row   int
	Value any
	Err   error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("field %q row %d (%T %v): %v", e.Field, e.Row, e.Value, e.Value, e.Err)
}

func (e *ColumnError) Unwrap() error {
	return e.Err
}
