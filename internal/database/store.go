package database

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/koba/bqtable/internal/generator"
	"github.com/koba/bqtable/internal/schema"
)

// sqlStore holds what the database/sql warehouses share. Engines provide
// the catalog lookup.
type sqlStore struct {
	db      *sql.DB
	dialect generator.Dialect
	columns func(ctx context.Context, tableName string) ([]columnInfo, error)
}

// Close closes the connection
func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetSchema retrieves the schema for a specific table
func (s *sqlStore) GetSchema(ctx context.Context, tableName string) (schema.Schema, error) {
	columns, err := s.columns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", tableName)
	}
	return schemaFromColumns(columns)
}

// SelectQuery builds a SELECT over columns, or every column when empty
func (s *sqlStore) SelectQuery(tableName string, columns []string) string {
	list := "*"
	if len(columns) > 0 {
		list = strings.Join(s.dialect.QuoteIdentifiers(columns), ", ")
	}
	return fmt.Sprintf("SELECT %s FROM %s", list, s.dialect.QuoteIdentifier(tableName))
}

// RunQuery runs query and returns up to limit rows (all when limit <= 0)
func (s *sqlStore) RunQuery(ctx context.Context, query string, limit int) ([][]any, error) {
	rows, err := s.db.QueryContext(ctx, limitClause(query, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		// Drivers return text as raw bytes
		for i, val := range values {
			if b, ok := val.([]byte); ok {
				values[i] = string(b)
			}
		}

		data = append(data, values)
	}

	return data, rows.Err()
}

// LoadFile inserts headerless CSV rows in a single transaction. A missing
// table is created from s and fields missing from an existing table are
// added as columns.
func (s *sqlStore) LoadFile(ctx context.Context, tableName string, file io.Reader, sch schema.Schema, mode WriteMode) (*LoadResult, error) {
	if len(sch) == 0 {
		return nil, fmt.Errorf("%w: cannot load %s without a schema", schema.ErrSchema, tableName)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(sch)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read load file: %w", err)
	}

	existing, err := s.columns(ctx, tableName)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range s.prepareStatements(tableName, sch, existing, mode) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to prepare table %s: %w", tableName, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, generator.NewDMLGenerator(s.dialect).InsertStatement(tableName, sch.Names()))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insert.Close()

	for i, record := range records {
		args, err := loadArgs(sch, record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return nil, fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit load: %w", err)
	}

	return &LoadResult{JobID: newJobID(), Table: tableName, Rows: int64(len(records))}, nil
}

func (s *sqlStore) prepareStatements(tableName string, sch schema.Schema, existing []columnInfo, mode WriteMode) []string {
	ddl := generator.NewDDLGenerator(s.dialect)
	if len(existing) == 0 {
		return []string{ddl.CreateTable(tableName, sch, true)}
	}

	current := make(schema.Schema, len(existing))
	for i, col := range existing {
		current[i] = schema.Field{Name: col.Name, Type: typeFromSQL(col.Type), Mode: schema.ModeNullable}
	}

	var added []schema.FieldChange
	for _, change := range schema.Diff(current, sch) {
		if change.Action == schema.ActionAdd {
			added = append(added, change)
		}
	}

	statements := ddl.AlterTable(tableName, added)
	if mode == WriteTruncate {
		statements = append(statements, ddl.Truncate(tableName))
	}
	return statements
}

// loadArgs turns CSV text into insert arguments; empty fields are null
func loadArgs(sch schema.Schema, record []string) ([]any, error) {
	args := make([]any, len(record))
	for i, text := range record {
		if text == "" {
			continue
		}
		f := sch[i]
		if f.Mode == schema.ModeRepeated || f.Type.IsNested() {
			args[i] = text
			continue
		}

		switch f.Type {
		case schema.TypeBytes:
			b, err := base64.StdEncoding.DecodeString(text)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", f.Name, err)
			}
			args[i] = b
		case schema.TypeBoolean:
			b, err := strconv.ParseBool(text)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", f.Name, err)
			}
			args[i] = b
		default:
			args[i] = text
		}
	}
	return args, nil
}
