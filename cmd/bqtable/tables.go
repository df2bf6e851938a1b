package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koba/bqtable/internal/database"
	"github.com/koba/bqtable/internal/export"
	"github.com/koba/bqtable/internal/schema"
	"github.com/koba/bqtable/internal/snapshot"
	"github.com/koba/bqtable/internal/table"
)

var (
	pullLimit   int
	pullColumns []string
	pullAs      string

	pushSource string
	pushMode   string

	showTable string
	showLimit int
	showRows  string

	exportTable     string
	exportFormat    string
	exportOutput    string
	exportDelimiter string
	exportHeader    bool

	targetTable string
)

var pullCmd = &cobra.Command{
	Use:   "pull <table> <snapshot>",
	Short: "Pull a warehouse table into a snapshot",
	Long:  `Read a warehouse table with its schema and store it in a snapshot file, creating the file when needed.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runPull,
}

var pushCmd = &cobra.Command{
	Use:   "push <snapshot> <table>",
	Short: "Load a snapshot table into the warehouse",
	Args:  cobra.ExactArgs(2),
	RunE:  runPush,
}

var showCmd = &cobra.Command{
	Use:   "show <snapshot>",
	Short: "Print schemas and rows of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var exportCmd = &cobra.Command{
	Use:   "export <snapshot>",
	Short: "Export a snapshot table as CSV, JSON lines or Arrow",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var renameCmd = &cobra.Command{
	Use:   "rename <snapshot> <old=new>...",
	Short: "Rename fields of a snapshot table",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRename,
}

var schemaCmd = &cobra.Command{
	Use:   "schema <snapshot> <schema.json>",
	Short: "Replace the schema of a snapshot table, realigning its data",
	Long: `Bind a new schema (a JSON array of fields) to a snapshot table. Columns
are matched by name, new fields are filled with nulls and values are
converted to the new types.`,
	Args: cobra.ExactArgs(2),
	RunE: runSchema,
}

var projectCmd = &cobra.Command{
	Use:   "project <snapshot> <field>...",
	Short: "Keep only the named fields of a snapshot table",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runProject,
}

func init() {
	pullCmd.Flags().IntVar(&pullLimit, "limit", 0, "Maximum number of rows (default: unlimited)")
	pullCmd.Flags().StringSliceVar(&pullColumns, "columns", nil, "Columns to read (default: all)")
	pullCmd.Flags().StringVar(&pullAs, "as", "", "Name of the table inside the snapshot (default: warehouse table name)")

	pushCmd.Flags().StringVar(&pushSource, "source", "", "Snapshot table to load (default: the target table name)")
	pushCmd.Flags().StringVar(&pushMode, "mode", string(database.WriteAppend), "Write mode: append or truncate")

	showCmd.Flags().StringVar(&showTable, "table", "", "Table to show (default: all)")
	showCmd.Flags().IntVar(&showLimit, "limit", 10, "Maximum number of rows per table (0: all)")
	showCmd.Flags().StringVar(&showRows, "rows", string(table.RowTypeDict), "Row shape: list or dict")

	exportCmd.Flags().StringVar(&exportTable, "table", "", "Table to export")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json or arrow")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportDelimiter, "delimiter", ",", "CSV field delimiter")
	exportCmd.Flags().BoolVar(&exportHeader, "header", false, "Write a CSV header row")
	exportCmd.MarkFlagRequired("table")

	for _, c := range []*cobra.Command{renameCmd, schemaCmd, projectCmd} {
		c.Flags().StringVar(&targetTable, "table", "", "Snapshot table to change")
		c.MarkFlagRequired("table")
	}

	rootCmd.AddCommand(schemaCmd, projectCmd)
}

// openSnapshot loads path, or starts an empty snapshot when it does not exist
func openSnapshot(path string, create bool) (*snapshot.Snapshot, error) {
	opts, err := tableOptions()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && create {
		return snapshot.New(), nil
	}
	snap, err := snapshot.Load(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

func snapshotTable(snap *snapshot.Snapshot, name string) (*table.Table, error) {
	t, ok := snap.Tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s not found in snapshot (have %s)", name, strings.Join(snap.TableNames(), ", "))
	}
	return t, nil
}

func runPull(cmd *cobra.Command, args []string) error {
	tableRef, snapshotPath := args[0], args[1]
	ctx := cmd.Context()

	snap, err := openSnapshot(snapshotPath, true)
	if err != nil {
		return err
	}

	w, err := connect(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	opts, err := tableOptions()
	if err != nil {
		return err
	}

	t, err := database.Pull(ctx, w, tableRef, pullLimit, pullColumns, opts...)
	if err != nil {
		return fmt.Errorf("failed to pull %s: %w", tableRef, err)
	}

	name := pullAs
	if name == "" {
		name = tableRef
	}
	snap.Tables[name] = t
	snap.Metadata["db_type"] = cfg.DBType

	if err := snapshot.Save(snapshotPath, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	fmt.Printf("Pulled %d rows of %s into %s\n", t.Len(), tableRef, snapshotPath)
	return nil
}

func runPush(cmd *cobra.Command, args []string) error {
	snapshotPath, tableRef := args[0], args[1]
	ctx := cmd.Context()

	mode, err := database.ParseWriteMode(pushMode)
	if err != nil {
		return err
	}

	snap, err := openSnapshot(snapshotPath, false)
	if err != nil {
		return err
	}
	source := pushSource
	if source == "" {
		source = tableRef
	}
	t, err := snapshotTable(snap, source)
	if err != nil {
		return err
	}

	w, err := connect(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	result, err := database.Push(ctx, w, t, tableRef, mode)
	if err != nil {
		return fmt.Errorf("failed to push %s: %w", tableRef, err)
	}
	fmt.Printf("Loaded %d rows into %s (job %s)\n", result.Rows, result.Table, result.JobID)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	rowType, err := table.ParseRowType(showRows)
	if err != nil {
		return err
	}

	snap, err := openSnapshot(args[0], false)
	if err != nil {
		return err
	}

	names := snap.TableNames()
	if showTable != "" {
		names = []string{showTable}
	}

	for _, name := range names {
		t, err := snapshotTable(snap, name)
		if err != nil {
			return err
		}
		if err := showOne(os.Stdout, name, t, rowType); err != nil {
			return err
		}
	}
	return nil
}

func showOne(w io.Writer, name string, t *table.Table, rowType table.RowType) error {
	s := t.Schema()
	fmt.Fprintf(w, "Table: %s (%d rows)\n", name, t.Len())

	schemaJSON, err := json.MarshalIndent(s.Dicts(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n", schemaJSON)

	enc := json.NewEncoder(w)
	for _, row := range t.RowsAs(showLimit, rowType) {
		if err := enc.Encode(jsonRow(s, row)); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	return nil
}

func jsonRow(s schema.Schema, row any) any {
	switch r := row.(type) {
	case []any:
		out := make([]any, len(r))
		for i, v := range r {
			out[i] = export.JSONValue(s[i], v)
		}
		return out
	case schema.Row:
		out := make(map[string]any, len(r))
		for _, f := range s {
			out[f.Name] = export.JSONValue(f, r[f.Name])
		}
		return out
	}
	return row
}

func runExport(cmd *cobra.Command, args []string) error {
	snap, err := openSnapshot(args[0], false)
	if err != nil {
		return err
	}
	t, err := snapshotTable(snap, exportTable)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "csv":
		delimiter := []rune(exportDelimiter)
		if len(delimiter) != 1 {
			return fmt.Errorf("delimiter must be a single character, got %q", exportDelimiter)
		}
		return export.WriteCSV(out, t, export.CSVOptions{Delimiter: delimiter[0], Header: exportHeader})
	case "json":
		return export.WriteJSON(out, t)
	case "arrow":
		return export.WriteArrow(out, t)
	}
	return fmt.Errorf("unsupported export format: %s", exportFormat)
}

// changeTable loads a snapshot, applies change to one table and saves it
func changeTable(snapshotPath string, change func(*table.Table) error) error {
	snap, err := openSnapshot(snapshotPath, false)
	if err != nil {
		return err
	}
	t, err := snapshotTable(snap, targetTable)
	if err != nil {
		return err
	}
	if err := change(t); err != nil {
		return err
	}
	return snapshot.Save(snapshotPath, snap)
}

func runRename(cmd *cobra.Command, args []string) error {
	mapping := make(map[string]string, len(args)-1)
	for _, pair := range args[1:] {
		oldName, newName, ok := strings.Cut(pair, "=")
		if !ok || oldName == "" || newName == "" {
			return fmt.Errorf("rename must look like old=new, got %q", pair)
		}
		mapping[oldName] = newName
	}
	return changeTable(args[0], func(t *table.Table) error {
		return t.Rename(mapping)
	})
}

func runSchema(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	s, err := schema.ParseJSON(data)
	if err != nil {
		return err
	}
	return changeTable(args[0], func(t *table.Table) error {
		return t.SetSchema(s)
	})
}

func runProject(cmd *cobra.Command, args []string) error {
	return changeTable(args[0], func(t *table.Table) error {
		return t.Project(args[1:]...)
	})
}
