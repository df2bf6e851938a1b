package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/koba/bqtable/internal/table"
)

// CSVOptions controls delimited-text output
type CSVOptions struct {
	Delimiter rune
	Header    bool
}

// WriteCSV writes every row of t as delimited text; nulls are empty fields
func WriteCSV(w io.Writer, t *table.Table, opts CSVOptions) error {
	s := t.Schema()
	if len(s) == 0 && t.Len() > 0 {
		return table.ErrNoSchema
	}

	writer := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		writer.Comma = opts.Delimiter
	}

	if opts.Header {
		if err := writer.Write(s.Names()); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	record := make([]string, len(s))
	for r, row := range t.Rows(0) {
		for i, v := range row {
			record[i], _ = Text(s[i], v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
