package convert

import (
	"fmt"
	"math"

	"github.com/koba/bqtable/internal/schema"
)

// isNoneLike reports whether v is nil or a floating NaN
func isNoneLike(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// noneString reports the string spellings of an absent value
func noneString(s string) bool {
	return s == "None" || s == "nan"
}

// handleNone applies the null policy: REQUIRED fields fail or take zero,
// everything else takes absent.
func handleNone(mode schema.Mode, opts Options, zero, absent any) (any, error) {
	if mode == schema.ModeRequired {
		if opts.InferRequired {
			return zero, nil
		}
		return nil, fmt.Errorf("%w: null is not allowed in REQUIRED mode", ErrValue)
	}
	return absent, nil
}
