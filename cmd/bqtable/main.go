package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/koba/bqtable/internal/config"
	"github.com/koba/bqtable/internal/database"
	"github.com/koba/bqtable/internal/diff"
	"github.com/koba/bqtable/internal/generator"
	"github.com/koba/bqtable/internal/logging"
	"github.com/koba/bqtable/internal/snapshot"
	"github.com/koba/bqtable/internal/table"
)

var (
	configPath string
	tables     []string
	limit      int
	outputDir  string
	keys       []string
	dialect    string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog = func() {}
)

func main() {
	err := rootCmd.Execute()
	closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bqtable",
	Short: "Typed warehouse table tool",
	Long: `A tool to pull warehouse tables into typed local snapshots, inspect,
reshape and export them, and push them back.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [name]",
	Short: "Create a warehouse snapshot",
	Long:  `Create a snapshot of the current warehouse tables.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshot,
}

var diffCmd = &cobra.Command{
	Use:   "diff <snapshot1> <snapshot2>",
	Short: "Compare two snapshots",
	Long:  `Compare two snapshots and display the differences.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <snapshot1> <snapshot2>",
	Short: "Generate migration SQL",
	Long:  `Generate DDL and DML statements to migrate from snapshot1 to snapshot2.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables take precedence)")

	// Snapshot command flags
	snapshotCmd.Flags().StringSliceVar(&tables, "tables", nil, "Comma-separated list of tables to snapshot (default: all tables)")
	snapshotCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows per table (default: unlimited)")
	snapshotCmd.Flags().StringVar(&outputDir, "output-dir", "./snapshots", "Output directory for snapshots")

	diffCmd.Flags().StringSliceVar(&keys, "keys", nil, "Columns identifying a row (default: compare whole rows)")
	migrateCmd.Flags().StringSliceVar(&keys, "keys", nil, "Columns identifying a row (default: compare whole rows)")
	migrateCmd.Flags().StringVar(&dialect, "dialect", "", "SQL dialect: mysql, postgres or sqlite (default: snapshot db_type, else mysql)")

	rootCmd.AddCommand(snapshotCmd, diffCmd, migrateCmd)
	rootCmd.AddCommand(pullCmd, pushCmd, showCmd, exportCmd, renameCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err = logging.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogSeqURL)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)
	return nil
}

func tableOptions() ([]table.Option, error) {
	return cfg.TableOptions(logger)
}

// connect opens the configured warehouse; the caller closes it
func connect(ctx context.Context) (database.Warehouse, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	w, err := database.NewWarehouse(cfg.Database())
	if err != nil {
		return nil, fmt.Errorf("failed to create warehouse: %w", err)
	}

	if err := w.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	return w, nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w, err := connect(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	opts, err := tableOptions()
	if err != nil {
		return err
	}

	// Generate snapshot filename
	var filename string
	if len(args) > 0 {
		filename = args[0]
		if !strings.HasSuffix(filename, ".db") {
			filename += ".db"
		}
	} else {
		name := cfg.DBName
		if name == "" {
			name = cfg.BQDataset
		}
		timestamp := time.Now().Format("2006-01-02-15-04-05")
		filename = fmt.Sprintf("%s-%s.db", filepath.Base(name), timestamp)
	}

	outputPath := filepath.Join(outputDir, filename)

	fmt.Printf("Creating snapshot: %s\n", outputPath)
	if err := snapshot.Create(ctx, w, cfg.DBType, tables, outputPath, limit, opts...); err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	fmt.Printf("Snapshot created successfully: %s\n", outputPath)
	return nil
}

func loadPair(path1, path2 string) (*snapshot.Snapshot, *snapshot.Snapshot, error) {
	opts, err := tableOptions()
	if err != nil {
		return nil, nil, err
	}

	snap1, err := snapshot.Load(path1, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load snapshot1: %w", err)
	}

	snap2, err := snapshot.Load(path2, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load snapshot2: %w", err)
	}
	return snap1, snap2, nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	fmt.Printf("Loading snapshots: %s, %s\n", args[0], args[1])
	snap1, snap2, err := loadPair(args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Comparing snapshots ===\n\n")
	diff.Display(os.Stdout, diff.Compare(snap1, snap2, keys))
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	snap1, snap2, err := loadPair(args[0], args[1])
	if err != nil {
		return err
	}

	result := diff.Compare(snap1, snap2, keys)

	// Use the flag, then the snapshot's source database type
	name := dialect
	if name == "" {
		name = snap2.Metadata["db_type"]
	}
	d, err := generator.ParseDialect(name)
	if err != nil {
		if dialect != "" {
			return err
		}
		d = generator.MySQL
	}

	fmt.Printf("-- Migration SQL from %s to %s\n", filepath.Base(args[0]), filepath.Base(args[1]))
	fmt.Printf("-- Generated at: %s\n\n", time.Now().Format(time.RFC3339))
	fmt.Println(diff.GenerateSQL(result, d))

	return nil
}
