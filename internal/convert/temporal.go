package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cast"

	"github.com/koba/bqtable/internal/schema"
)

// minDatetime is substituted for absent REQUIRED date-times
var minDatetime = civil.DateTime{Date: civil.Date{Year: 1, Month: time.January, Day: 1}}

// ToDatetime converts v to a civil.DateTime.
//
// Strings are parsed leniently, numbers are Unix timestamps in
// opts.Location, positional slices hold year, month, day, hour, minute,
// second and microsecond, and maps hold the same components by name.
func ToDatetime(v any, mode schema.Mode, opts Options) (any, error) {
	if isNoneLike(v) {
		return handleNone(mode, opts, minDatetime, nil)
	}

	switch x := v.(type) {
	case civil.DateTime:
		return x, nil
	case civil.Date:
		return civil.DateTime{Date: x}, nil
	case time.Time:
		return civil.DateTimeOf(x), nil
	case string:
		switch x {
		case "", "None", "nan", "False":
			return handleNone(mode, opts, minDatetime, nil)
		}
		t, err := parseTime(x, opts.location())
		if err != nil {
			return nil, err
		}
		return civil.DateTimeOf(t), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: could not convert %q to DATETIME", ErrValue, x.String())
		}
		return fromEpoch(f, opts.location())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValue, err)
		}
		return fromEpoch(f, opts.location())
	case map[string]any:
		return namedComponents(x)
	}

	if parts, ok := components(v); ok {
		return positionalComponents(parts)
	}
	return nil, fmt.Errorf("%w: cannot convert %T to DATETIME", ErrNotImplemented, v)
}

// ToDate converts v to a civil.Date through a date-time
func ToDate(v any, mode schema.Mode, opts Options) (any, error) {
	switch x := v.(type) {
	case civil.Date:
		return x, nil
	case civil.DateTime:
		return x.Date, nil
	case time.Time:
		return civil.DateOf(x), nil
	}

	dt, err := ToDatetime(v, mode, opts)
	if err != nil || dt == nil {
		return nil, err
	}
	return dt.(civil.DateTime).Date, nil
}

// ToTime converts v to a civil.Time. Positional slices hold hour,
// minute, second and microsecond.
func ToTime(v any, mode schema.Mode, opts Options) (any, error) {
	if isNoneLike(v) {
		return handleNone(mode, opts, civil.Time{}, nil)
	}

	switch x := v.(type) {
	case civil.Time:
		return x, nil
	case civil.DateTime:
		return x.Time, nil
	case time.Time:
		return civil.TimeOf(x), nil
	case string:
		switch x {
		case "", "None", "nan", "False":
			return handleNone(mode, opts, civil.Time{}, nil)
		}
		if t, err := civil.ParseTime(strings.TrimSpace(x)); err == nil {
			return t, nil
		}
	}

	if parts, ok := components(v); ok {
		return timeComponents(parts)
	}

	dt, err := ToDatetime(v, mode, opts)
	if err != nil || dt == nil {
		return nil, err
	}
	return dt.(civil.DateTime).Time, nil
}

// ToTimestamp converts v to float seconds since the Unix epoch. Numbers
// are taken as they are.
func ToTimestamp(v any, mode schema.Mode, opts Options) (any, error) {
	switch x := v.(type) {
	case float64:
		if !math.IsNaN(x) {
			return x, nil
		}
	case float32:
		if !math.IsNaN(float64(x)) {
			return float64(x), nil
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValue, err)
		}
		return f, nil
	case json.Number:
		if f, err := x.Float64(); err == nil && !math.IsNaN(f) {
			return f, nil
		}
	case time.Time:
		return epochSeconds(x), nil
	case string:
		switch x {
		case "", "None", "nan", "False":
		default:
			t, err := parseTime(x, opts.location())
			if err != nil {
				return nil, err
			}
			return epochSeconds(t), nil
		}
	}

	dt, err := ToDatetime(v, mode, opts)
	if err != nil || dt == nil {
		return nil, err
	}
	return epochSeconds(dt.(civil.DateTime).In(opts.location())), nil
}

// parseTime accepts civil date-times and the layouts understood by cast;
// strings without an offset are read in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if dt, err := civil.ParseDateTime(s); err == nil {
		return dt.In(loc), nil
	}
	t, err := cast.StringToDateInDefaultLocation(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unable to parse %q as a date-time", ErrValue, s)
	}
	return t, nil
}

func fromEpoch(f float64, loc *time.Location) (any, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("%w: %v is not a valid timestamp", ErrValue, f)
	}
	sec := math.Floor(f)
	nsec := math.Round((f - sec) * 1e9)
	return civil.DateTimeOf(time.Unix(int64(sec), int64(nsec)).In(loc)), nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// components unpacks a positional slice of integers
func components(v any) ([]int, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if _, isBytes := v.([]byte); isBytes {
		return nil, false
	}
	parts := make([]int, rv.Len())
	for i := range parts {
		n, err := cast.ToIntE(rv.Index(i).Interface())
		if err != nil {
			return nil, false
		}
		parts[i] = n
	}
	return parts, true
}

func positionalComponents(parts []int) (any, error) {
	if len(parts) < 3 || len(parts) > 7 {
		return nil, fmt.Errorf("%w: DATETIME needs 3 to 7 components, got %d", ErrValue, len(parts))
	}
	c := make([]int, 7)
	copy(c, parts)
	return buildDatetime(c[0], c[1], c[2], c[3], c[4], c[5], c[6])
}

var datetimeKeys = []string{"year", "month", "day", "hour", "minute", "second", "microsecond"}

func namedComponents(m map[string]any) (any, error) {
	c := make([]int, len(datetimeKeys))
	for key, raw := range m {
		i := indexOf(datetimeKeys, key)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q is not a DATETIME component", ErrValue, key)
		}
		n, err := cast.ToIntE(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: component %q: %v", ErrValue, key, err)
		}
		c[i] = n
	}
	for _, key := range datetimeKeys[:3] {
		if _, ok := m[key]; !ok {
			return nil, fmt.Errorf("%w: DATETIME component %q is required", ErrValue, key)
		}
	}
	return buildDatetime(c[0], c[1], c[2], c[3], c[4], c[5], c[6])
}

func buildDatetime(year, month, day, hour, minute, second, micro int) (any, error) {
	dt := civil.DateTime{
		Date: civil.Date{Year: year, Month: time.Month(month), Day: day},
		Time: civil.Time{Hour: hour, Minute: minute, Second: second, Nanosecond: micro * 1000},
	}
	if !dt.IsValid() {
		return nil, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d:%02d.%06d is not a valid DATETIME", ErrValue, year, month, day, hour, minute, second, micro)
	}
	return dt, nil
}

func timeComponents(parts []int) (any, error) {
	if len(parts) < 1 || len(parts) > 4 {
		return nil, fmt.Errorf("%w: TIME needs 1 to 4 components, got %d", ErrValue, len(parts))
	}
	c := make([]int, 4)
	copy(c, parts)
	t := civil.Time{Hour: c[0], Minute: c[1], Second: c[2], Nanosecond: c[3] * 1000}
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %v is not a valid TIME", ErrValue, parts)
	}
	return t, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
