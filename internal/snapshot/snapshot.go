// Package snapshot persists tables: one table as a compressed payload, or
// many tables in a single SQLite file.
package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/koba/bqtable/internal/database"
	"github.com/koba/bqtable/internal/table"
)

// Snapshot is a set of named tables plus free-form metadata
type Snapshot struct {
	Metadata map[string]string
	Tables   map[string]*table.Table
}

// New creates an empty snapshot stamped with the creation time
func New() *Snapshot {
	return &Snapshot{
		Metadata: map[string]string{"created_at": time.Now().Format(time.RFC3339)},
		Tables:   make(map[string]*table.Table),
	}
}

// TableNames returns the table names in sorted order
func (s *Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create pulls tables (every table when empty) from a warehouse, up to
// limit rows each, and saves them to outputPath
func Create(ctx context.Context, w database.Warehouse, dbType string, tables []string, outputPath string, limit int, opts ...table.Option) error {
	// Get all tables if not specified
	if len(tables) == 0 {
		var err error
		tables, err = w.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("failed to get all tables: %w", err)
		}
	}

	snap := New()
	snap.Metadata["db_type"] = dbType
	for _, tableName := range tables {
		t, err := database.Pull(ctx, w, tableName, limit, nil, opts...)
		if err != nil {
			return fmt.Errorf("failed to snapshot table %s: %w", tableName, err)
		}
		snap.Tables[tableName] = t
	}

	return Save(outputPath, snap)
}

// Save writes snap to a SQLite file, replacing any existing one. The file
// is built next to outputPath and renamed over it only once complete, so a
// failed save leaves the previous snapshot in place.
func Save(outputPath string, snap *Snapshot) error {
	// Ensure output directory exists
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := write(tmpPath, snap); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func write(path string, snap *Snapshot) error {
	snapshotDB, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot database: %w", err)
	}
	defer snapshotDB.Close()

	if err := initializeSchema(snapshotDB); err != nil {
		return fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}

	tx, err := snapshotDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range snap.Metadata {
		if _, err := tx.Exec("INSERT INTO metadata (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to insert metadata: %w", err)
		}
	}

	for _, tableName := range snap.TableNames() {
		if err := saveTable(tx, tableName, snap.Tables[tableName]); err != nil {
			return fmt.Errorf("failed to save table %s: %w", tableName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return snapshotDB.Close()
}

func saveTable(tx *sql.Tx, tableName string, t *table.Table) error {
	// Store schema as JSON
	schemaJSON, err := json.Marshal(t.Schema().Dicts())
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO table_schemas (table_name, schema_json) VALUES (?, ?)",
		tableName,
		string(schemaJSON),
	); err != nil {
		return fmt.Errorf("failed to insert schema: %w", err)
	}

	var payload bytes.Buffer
	if err := Encode(&payload, t); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO table_data (table_name, row_count, payload) VALUES (?, ?, ?)",
		tableName,
		t.Len(),
		payload.Bytes(),
	); err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}
	return nil
}

// Load loads a snapshot from a SQLite file
func Load(snapshotPath string, opts ...table.Option) (*Snapshot, error) {
	// Check if file exists
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("snapshot file does not exist: %s", snapshotPath)
	}

	db, err := sql.Open("sqlite", snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	defer db.Close()

	snapshot := &Snapshot{
		Metadata: make(map[string]string),
		Tables:   make(map[string]*table.Table),
	}

	// Load metadata
	rows, err := db.Query("SELECT key, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		snapshot.Metadata[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	// Load tables
	dataRows, err := db.Query("SELECT table_name, payload FROM table_data ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("failed to query table data: %w", err)
	}
	defer dataRows.Close()

	for dataRows.Next() {
		var tableName string
		var payload []byte
		if err := dataRows.Scan(&tableName, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan table data: %w", err)
		}

		t, err := Decode(bytes.NewReader(payload), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load table %s: %w", tableName, err)
		}
		snapshot.Tables[tableName] = t
	}

	return snapshot, dataRows.Err()
}
