package convert

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/koba/bqtable/internal/schema"
)

// passRecord keeps nested values as they are. Only absent values and
// strings holding a JSON object or array are touched; children are not
// type-checked. Decoded values are no longer strings, so converting the
// column again leaves it unchanged.
func passRecord(v any, mode schema.Mode, opts Options) (any, error) {
	if isNoneLike(v) {
		return handleNone(mode, opts, map[string]any{}, nil)
	}

	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	if s == "" || noneString(s) {
		return handleNone(mode, opts, map[string]any{}, nil)
	}

	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return s, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return nil, fmt.Errorf("%w: record value is not valid JSON: %v", ErrValue, err)
	}
	return decoded, nil
}
