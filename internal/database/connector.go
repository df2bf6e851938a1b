// Package database connects tables to warehouses: relational databases
// reached through database/sql, and BigQuery.
package database

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/koba/bqtable/internal/schema"
)

// Config holds warehouse connection configuration
type Config struct {
	Type     string // "mysql", "postgres", "sqlite" or "bigquery"
	Host     string
	Port     string
	Database string // database name, or file path for sqlite
	User     string
	Password string

	Project     string // bigquery only
	Dataset     string
	Credentials string // service account key file
}

// WriteMode controls what happens to existing rows on load
type WriteMode string

const (
	WriteAppend   WriteMode = "APPEND"
	WriteTruncate WriteMode = "TRUNCATE"
)

// ParseWriteMode resolves a write mode name, case-insensitively
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(strings.ToUpper(s)) {
	case WriteAppend:
		return WriteAppend, nil
	case WriteTruncate:
		return WriteTruncate, nil
	}
	return "", fmt.Errorf("unsupported write mode: %s", s)
}

// LoadResult describes a finished load
type LoadResult struct {
	JobID string
	Table string
	Rows  int64
}

// Warehouse defines operations for warehouse connections
type Warehouse interface {
	Connect(ctx context.Context) error
	Close() error
	ListTables(ctx context.Context) ([]string, error)
	GetSchema(ctx context.Context, tableRef string) (schema.Schema, error)
	// SelectQuery builds a query reading columns (all when empty) from tableRef
	SelectQuery(tableRef string, columns []string) string
	RunQuery(ctx context.Context, query string, limit int) ([][]any, error)
	// LoadFile loads headerless CSV rows laid out per s, creating the
	// table when it does not exist.
	LoadFile(ctx context.Context, tableRef string, file io.Reader, s schema.Schema, mode WriteMode) (*LoadResult, error)
}

// NewWarehouse creates a new warehouse connection based on type
func NewWarehouse(config Config) (Warehouse, error) {
	switch strings.ToLower(config.Type) {
	case "mysql":
		return NewMySQL(config), nil
	case "postgres", "postgresql":
		return NewPostgres(config), nil
	case "sqlite", "sqlite3":
		return NewSQLite(config), nil
	case "bigquery":
		return NewBigQuery(config), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

func newJobID() string {
	return "load_table_from_file_" + uuid.NewString()
}

func limitClause(query string, limit int) string {
	if limit > 0 {
		return fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	return query
}
