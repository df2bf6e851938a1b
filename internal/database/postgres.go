package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/koba/bqtable/internal/generator"
)

// Postgres implements the Warehouse interface for PostgreSQL
type Postgres struct {
	sqlStore
	config Config
}

// NewPostgres creates a new PostgreSQL warehouse connection
func NewPostgres(config Config) *Postgres {
	p := &Postgres{config: config}
	p.dialect = generator.Postgres
	p.columns = p.getColumns
	return p
}

// Connect establishes a connection to PostgreSQL
func (p *Postgres) Connect(ctx context.Context) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		p.config.Host,
		p.config.Port,
		p.config.User,
		p.config.Password,
		p.config.Database,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	p.db = db
	return nil
}

// ListTables retrieves all table names in the public schema
func (p *Postgres) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	return queryNames(ctx, p.db, query)
}

func (p *Postgres) getColumns(ctx context.Context, tableName string) ([]columnInfo, error) {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`
	return queryColumns(ctx, p.db, query, tableName)
}
