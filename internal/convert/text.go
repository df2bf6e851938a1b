package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/koba/bqtable/internal/schema"
)

// ToBoolean converts v to a bool
func ToBoolean(v any, mode schema.Mode, opts Options) (any, error) {
	if isNoneLike(v) {
		return handleNone(mode, opts, false, nil)
	}

	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return stringToBoolean(x, mode, opts)
	case json.Number:
		return stringToBoolean(x.String(), mode, opts)
	case decimal.Decimal:
		return !x.IsZero(), nil
	}

	// numbers are true when non-zero, containers when non-empty
	if f, err := cast.ToFloat64E(v); err == nil {
		return f != 0, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0, nil
	}
	return true, nil
}

func stringToBoolean(s string, mode schema.Mode, opts Options) (any, error) {
	switch s {
	case "", "0", "0.0", "False":
		return false, nil
	case "None", "nan":
		return handleNone(mode, opts, false, nil)
	}
	return true, nil
}

// ToString converts v to a string. Embedded newlines in string input
// are replaced with spaces.
func ToString(v any, mode schema.Mode, opts Options) (any, error) {
	if isNoneLike(v) {
		return handleNone(mode, opts, "", nil)
	}

	switch x := v.(type) {
	case []byte:
		if !utf8.Valid(x) {
			return nil, fmt.Errorf("%w: bytes are not valid UTF-8", ErrValue)
		}
		return string(x), nil
	case string:
		if noneString(x) {
			return handleNone(mode, opts, "", nil)
		}
		return strings.ReplaceAll(x, "\n", " "), nil
	case json.Number:
		return x.String(), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return x.String(), nil
	}

	if s, err := cast.ToStringE(v); err == nil {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

// ToBytes converts v to a byte slice. Integers are encoded as 4-byte
// big-endian unsigned values.
func ToBytes(v any, mode schema.Mode, opts Options) (any, error) {
	if isNoneLike(v) {
		return handleNone(mode, opts, []byte{}, nil)
	}

	switch x := v.(type) {
	case []byte:
		out := make([]byte, len(x))
		copy(out, x)
		return out, nil
	case string:
		switch {
		case x == "False":
			return []byte{}, nil
		case noneString(x):
			return handleNone(mode, opts, []byte{}, nil)
		}
		return []byte(x), nil
	case json.Number:
		return []byte(x.String()), nil
	case bool:
		if x {
			return uint32Bytes(1), nil
		}
		return uint32Bytes(0), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err := cast.ToUint64E(x)
		if err != nil || n > math.MaxUint32 || isNegative(x) {
			return nil, fmt.Errorf("%w: %v does not fit in 4 unsigned bytes", ErrValue, x)
		}
		return uint32Bytes(uint32(n)), nil
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return sliceBytes(rv)
	}

	return nil, fmt.Errorf("%w: cannot convert %T to BYTES", ErrValue, v)
}

// sliceBytes turns a sequence of small integers into bytes, one per element
func sliceBytes(rv reflect.Value) ([]byte, error) {
	out := make([]byte, rv.Len())
	for i := range out {
		elem := rv.Index(i)
		if elem.Kind() == reflect.Interface {
			elem = elem.Elem()
		}

		var inRange bool
		switch elem.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			inRange = elem.Int() >= 0 && elem.Int() <= math.MaxUint8
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			inRange = elem.Uint() <= math.MaxUint8
		default:
			return nil, fmt.Errorf("%w: BYTES element %d is %s, not an integer", ErrValue, i, elem.Kind())
		}
		if !inRange {
			return nil, fmt.Errorf("%w: BYTES element %d must be in range 0..255", ErrValue, i)
		}
		out[i] = byte(elem.Convert(reflect.TypeOf(uint64(0))).Uint())
	}
	return out, nil
}

func uint32Bytes(n uint32) []byte {
	return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}

func isNegative(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() < 0
	}
	return false
}
