package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/koba/bqtable/internal/schema"
)

// BigQuery implements the Warehouse interface for Google BigQuery.
// Table references are "table", "dataset.table" or "project.dataset.table";
// missing parts come from the configured project and dataset.
type BigQuery struct {
	config Config
	client *bigquery.Client
}

// NewBigQuery creates a new BigQuery warehouse connection
func NewBigQuery(config Config) *BigQuery {
	return &BigQuery{config: config}
}

// Connect creates the API client
func (b *BigQuery) Connect(ctx context.Context) error {
	var opts []option.ClientOption
	if b.config.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(b.config.Credentials))
	}

	client, err := bigquery.NewClient(ctx, b.config.Project, opts...)
	if err != nil {
		return fmt.Errorf("failed to create BigQuery client: %w", err)
	}

	b.client = client
	return nil
}

// Close closes the API client
func (b *BigQuery) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// ListTables retrieves all table names in the configured dataset
func (b *BigQuery) ListTables(ctx context.Context) ([]string, error) {
	it := b.client.Dataset(b.config.Dataset).Tables(ctx)

	var tables []string
	for {
		t, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get tables: %w", err)
		}
		tables = append(tables, t.TableID)
	}
	return tables, nil
}

// resolve splits a table reference, filling in configured defaults
func (b *BigQuery) resolve(tableRef string) (project, dataset, tableID string) {
	parts := strings.Split(strings.Trim(tableRef, "`"), ".")
	switch len(parts) {
	case 1:
		return b.config.Project, b.config.Dataset, parts[0]
	case 2:
		return b.config.Project, parts[0], parts[1]
	default:
		return strings.Join(parts[:len(parts)-2], "."), parts[len(parts)-2], parts[len(parts)-1]
	}
}

func (b *BigQuery) table(tableRef string) *bigquery.Table {
	project, dataset, tableID := b.resolve(tableRef)
	return b.client.DatasetInProject(project, dataset).Table(tableID)
}

// GetSchema retrieves the schema for a specific table
func (b *BigQuery) GetSchema(ctx context.Context, tableRef string) (schema.Schema, error) {
	md, err := b.table(tableRef).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table metadata: %w", err)
	}
	return schema.Normalize(fromBigQuerySchema(md.Schema))
}

// SelectQuery builds a standard SQL SELECT over columns, or every column
func (b *BigQuery) SelectQuery(tableRef string, columns []string) string {
	list := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = "`" + c + "`"
		}
		list = strings.Join(quoted, ", ")
	}
	project, dataset, tableID := b.resolve(tableRef)
	return fmt.Sprintf("SELECT %s FROM `%s.%s.%s`", list, project, dataset, tableID)
}

// RunQuery runs a standard SQL query and returns up to limit rows.
// Records become maps keyed by field name and repeated values []any.
func (b *BigQuery) RunQuery(ctx context.Context, query string, limit int) ([][]any, error) {
	it, err := b.client.Query(limitClause(query, limit)).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	var data [][]any
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		values := make([]any, len(row))
		for i, v := range row {
			var fs *bigquery.FieldSchema
			if i < len(it.Schema) {
				fs = it.Schema[i]
			}
			values[i] = plainValue(fs, v)
		}
		data = append(data, values)
	}
	return data, nil
}

// LoadFile runs a CSV load job with an explicit schema
func (b *BigQuery) LoadFile(ctx context.Context, tableRef string, file io.Reader, s schema.Schema, mode WriteMode) (*LoadResult, error) {
	source := bigquery.NewReaderSource(file)
	source.SourceFormat = bigquery.CSV
	source.Schema = toBigQuerySchema(s)

	loader := b.table(tableRef).LoaderFrom(source)
	loader.JobID = newJobID()
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.WriteDisposition = bigquery.WriteAppend
	if mode == WriteTruncate {
		loader.WriteDisposition = bigquery.WriteTruncate
	}

	job, err := loader.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for load job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("load job %s failed: %w", job.ID(), err)
	}

	result := &LoadResult{JobID: job.ID(), Table: tableRef}
	if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
		result.Rows = stats.OutputRows
	}
	return result, nil
}

func fromBigQuerySchema(bs bigquery.Schema) schema.Schema {
	if len(bs) == 0 {
		return nil
	}
	fields := make(schema.Schema, len(bs))
	for i, fs := range bs {
		mode := schema.ModeNullable
		switch {
		case fs.Repeated:
			mode = schema.ModeRepeated
		case fs.Required:
			mode = schema.ModeRequired
		}

		t := schema.Type(fs.Type)
		switch fs.Type {
		case bigquery.BigNumericFieldType:
			t = schema.TypeNumeric
		case bigquery.JSONFieldType:
			t = schema.TypeString
		}

		fields[i] = schema.Field{
			Name:        fs.Name,
			Type:        t,
			Mode:        mode,
			Description: fs.Description,
			Fields:      fromBigQuerySchema(fs.Schema),
		}
	}
	return fields
}

func toBigQuerySchema(s schema.Schema) bigquery.Schema {
	if len(s) == 0 {
		return nil
	}
	out := make(bigquery.Schema, len(s))
	for i, f := range s {
		t := bigquery.FieldType(f.Type)
		if f.Type == schema.TypeStruct {
			t = bigquery.RecordFieldType
		}
		out[i] = &bigquery.FieldSchema{
			Name:        f.Name,
			Type:        t,
			Description: f.Description,
			Required:    f.Mode == schema.ModeRequired,
			Repeated:    f.Mode == schema.ModeRepeated,
			Schema:      toBigQuerySchema(f.Fields),
		}
	}
	return out
}

// plainValue unwraps client values into the shapes the conversion engine reads
func plainValue(fs *bigquery.FieldSchema, v bigquery.Value) any {
	if fs == nil || v == nil {
		return v
	}

	if fs.Repeated {
		items, ok := v.([]bigquery.Value)
		if !ok {
			return v
		}
		element := *fs
		element.Repeated = false
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = plainValue(&element, item)
		}
		return out
	}

	if fs.Type == bigquery.RecordFieldType {
		values, ok := v.([]bigquery.Value)
		if !ok {
			return v
		}
		record := make(map[string]any, len(fs.Schema))
		for i, child := range fs.Schema {
			if i < len(values) {
				record[child.Name] = plainValue(child, values[i])
			}
		}
		return record
	}

	return v
}
