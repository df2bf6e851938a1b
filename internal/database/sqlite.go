package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/koba/bqtable/internal/generator"
)

// SQLite implements the Warehouse interface for a SQLite file;
// Config.Database is the file path.
type SQLite struct {
	sqlStore
	config Config
}

// NewSQLite creates a new SQLite warehouse connection
func NewSQLite(config Config) *SQLite {
	s := &SQLite{config: config}
	s.dialect = generator.SQLite
	s.columns = s.getColumns
	return s
}

// Connect opens the database file, creating it when missing
func (s *SQLite) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping SQLite: %w", err)
	}

	s.db = db
	return nil
}

// ListTables retrieves all user table names
func (s *SQLite) ListTables(ctx context.Context) ([]string, error) {
	query := "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	return queryNames(ctx, s.db, query)
}

func (s *SQLite) getColumns(ctx context.Context, tableName string) ([]columnInfo, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", s.dialect.QuoteIdentifier(tableName))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	var columns []columnInfo
	for rows.Next() {
		var (
			cid, notNull, pk int
			col              columnInfo
			defaultValue     sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = notNull == 0
		columns = append(columns, col)
	}

	return columns, rows.Err()
}
