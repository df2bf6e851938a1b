package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/koba/bqtable/internal/table"
)

// WriteJSON writes one JSON object per row, keyed by field name
func WriteJSON(w io.Writer, t *table.Table) error {
	s := t.Schema()
	if len(s) == 0 && t.Len() > 0 {
		return table.ErrNoSchema
	}

	enc := json.NewEncoder(w)
	for r, row := range t.Rows(0) {
		obj := make(map[string]any, len(s))
		for i, v := range row {
			obj[s[i].Name] = JSONValue(s[i], v)
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}
	return nil
}
