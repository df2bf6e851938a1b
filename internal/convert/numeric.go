package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/koba/bqtable/internal/schema"
)

// numericScale is the fractional precision of the warehouse NUMERIC type
const numericScale = 9

// ToInteger converts v to an int64
func ToInteger(v any, mode schema.Mode, opts Options) (any, error) {
	if isNoneLike(v) {
		return handleNone(mode, opts, int64(0), nil)
	}

	switch x := v.(type) {
	case []byte:
		return bytesToInteger(x)
	case string:
		switch x {
		case "False":
			return int64(0), nil
		case "", "None", "nan":
			return handleNone(mode, opts, int64(0), nil)
		}
		return parseInteger(x, mode, opts)
	case json.Number:
		return parseInteger(string(x), mode, opts)
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case float64:
		return floatToInteger(x, opts)
	case float32:
		return floatToInteger(float64(x), opts)
	case decimal.Decimal:
		whole := x.Truncate(0)
		if !whole.Equal(x) {
			opts.logger().Warn("converting decimal to integer with loss", "value", x.String())
		}
		if !whole.BigInt().IsInt64() {
			return nil, fmt.Errorf("%w: %s overflows INTEGER", ErrValue, x)
		}
		return whole.IntPart(), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows INTEGER", ErrValue, x)
		}
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows INTEGER", ErrValue, x)
		}
		return int64(x), nil
	}

	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot convert %T to INTEGER: %v", ErrValue, v, err)
	}
	return n, nil
}

// bytesToInteger decodes a big-endian unsigned integer
func bytesToInteger(b []byte) (any, error) {
	if len(b) > 8 || (len(b) == 8 && b[0]&0x80 != 0) {
		return nil, fmt.Errorf("%w: %d-byte value overflows INTEGER", ErrValue, len(b))
	}
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return int64(n), nil
}

func parseInteger(s string, mode schema.Mode, opts Options) (any, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid literal for INTEGER: %q", ErrValue, s)
	}
	if math.IsNaN(f) {
		return handleNone(mode, opts, int64(0), nil)
	}
	return floatToInteger(f, opts)
}

// floatToInteger truncates toward zero, warning when the fraction is lost
func floatToInteger(f float64, opts Options) (any, error) {
	if math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, fmt.Errorf("%w: %v overflows INTEGER", ErrValue, f)
	}
	if f != math.Trunc(f) {
		opts.logger().Warn("converting float to integer with loss", "value", f)
	}
	return int64(f), nil
}

// ToFloat converts v to a float64. Absent values become NaN, not nil.
func ToFloat(v any, mode schema.Mode, opts Options) (any, error) {
	if isNoneLike(v) {
		return handleNone(mode, opts, 0.0, math.NaN())
	}

	var (
		f   float64
		err error
	)
	switch x := v.(type) {
	case string:
		switch x {
		case "False":
			return 0.0, nil
		case "", "None", "nan":
			return handleNone(mode, opts, 0.0, math.NaN())
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: could not convert %q to FLOAT", ErrValue, x)
		}
	case json.Number:
		f, err = x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: could not convert %q to FLOAT", ErrValue, x.String())
		}
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case decimal.Decimal:
		f = x.InexactFloat64()
	default:
		f, err = cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot convert %T to FLOAT: %v", ErrValue, v, err)
		}
	}

	if math.IsNaN(f) {
		return handleNone(mode, opts, 0.0, math.NaN())
	}
	return f, nil
}

// ToNumeric converts v to an arbitrary-precision decimal. The empty
// string is zero, not absent.
func ToNumeric(v any, mode schema.Mode, opts Options) (any, error) {
	if isNoneLike(v) {
		return handleNone(mode, opts, decimal.Zero, nil)
	}

	switch x := v.(type) {
	case string:
		if x == "" {
			return decimal.Zero, nil
		}
		if noneString(x) {
			return handleNone(mode, opts, decimal.Zero, nil)
		}
		return parseDecimal(x)
	case json.Number:
		return parseDecimal(x.String())
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x == nil {
			return handleNone(mode, opts, decimal.Zero, nil)
		}
		return *x, nil
	case *big.Rat:
		if x == nil {
			return handleNone(mode, opts, decimal.Zero, nil)
		}
		return parseDecimal(x.FloatString(numericScale))
	case *big.Int:
		if x == nil {
			return handleNone(mode, opts, decimal.Zero, nil)
		}
		return decimal.NewFromBigInt(x, 0), nil
	case float64:
		return floatToDecimal(x)
	case float32:
		return floatToDecimal(float64(x))
	case bool:
		if x {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), nil
	}

	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot convert %T to NUMERIC: %v", ErrValue, v, err)
	}
	return decimal.NewFromInt(n), nil
}

func parseDecimal(s string) (any, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid literal for NUMERIC: %q", ErrValue, s)
	}
	return d, nil
}

func floatToDecimal(f float64) (any, error) {
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v is not a valid NUMERIC", ErrValue, f)
	}
	return decimal.NewFromFloat(f), nil
}
