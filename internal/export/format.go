// Package export writes tables as delimited text, newline-delimited JSON
// or Arrow IPC streams.
package export

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/koba/bqtable/internal/schema"
)

// TimestampLayout is how TIMESTAMP values are written in text form
const TimestampLayout = "2006-01-02 15:04:05.999999-07:00"

// FormatTimestamp renders epoch seconds as a UTC timestamp
func FormatTimestamp(sec float64) string {
	whole := math.Floor(sec)
	micros := math.Round((sec - whole) * 1e6)
	return time.Unix(int64(whole), int64(micros)*1000).UTC().Format(TimestampLayout)
}

// IsNull reports whether a converted value is absent
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// Text renders a converted value the way warehouse CSV loads expect it.
// ok is false for null values.
func Text(field schema.Field, v any) (s string, ok bool) {
	if IsNull(v) {
		return "", false
	}
	if field.Mode == schema.ModeRepeated || field.Type.IsNested() {
		b, err := json.Marshal(JSONValue(field, v))
		if err != nil {
			return fmt.Sprint(v), true
		}
		return string(b), true
	}

	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return base64.StdEncoding.EncodeToString(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		if field.Type == schema.TypeTimestamp {
			return FormatTimestamp(x), true
		}
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case decimal.Decimal:
		return x.String(), true
	case civil.Date:
		return x.String(), true
	case civil.DateTime:
		return x.String(), true
	case civil.Time:
		return x.String(), true
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s, true
	}
	return fmt.Sprint(v), true
}

// JSONValue returns a JSON-friendly form of a converted value: bytes as
// base64, NaN as null, decimals and civil values as strings and
// TIMESTAMP values as formatted UTC strings.
func JSONValue(field schema.Field, v any) any {
	if IsNull(v) {
		return nil
	}
	if field.Type.IsNested() {
		return NestedJSONValue(v)
	}

	if items, ok := v.([]any); ok && field.Mode == schema.ModeRepeated {
		out := make([]any, len(items))
		element := field
		element.Mode = schema.ModeNullable
		for i, item := range items {
			out[i] = JSONValue(element, item)
		}
		return out
	}

	switch x := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case float64:
		if math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
		if field.Type == schema.TypeTimestamp {
			return FormatTimestamp(x)
		}
		return x
	case decimal.Decimal:
		return x.String()
	case civil.Date:
		return x.String()
	case civil.DateTime:
		return x.String()
	case civil.Time:
		return x.String()
	}
	return v
}

// NestedJSONValue walks maps and slices held by RECORD values and replaces
// what encoding/json rejects or loses: NaN becomes null, infinities and
// decimals become strings, bytes become base64.
func NestedJSONValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = NestedJSONValue(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = NestedJSONValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = NestedJSONValue(item)
		}
		return out
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		if math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
		return x
	case float32:
		return NestedJSONValue(float64(x))
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case decimal.Decimal:
		return x.String()
	case civil.Date:
		return x.String()
	case civil.DateTime:
		return x.String()
	case civil.Time:
		return x.String()
	}
	return v
}
