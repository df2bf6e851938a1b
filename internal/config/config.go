// Package config loads runtime settings from an optional YAML file and
// the environment; environment variables win.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/koba/bqtable/internal/database"
	"github.com/koba/bqtable/internal/table"
)

// Config holds every runtime setting. Keys match their environment
// variable names, lower-cased.
type Config struct {
	DBType     string `mapstructure:"db_type"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBName     string `mapstructure:"db_name"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`

	BQProject     string `mapstructure:"bq_project"`
	BQDataset     string `mapstructure:"bq_dataset"`
	BQCredentials string `mapstructure:"bq_credentials"`

	LogLevel  string `mapstructure:"log_level"`
	LogSeqURL string `mapstructure:"log_seq_url"`

	InferRequired bool   `mapstructure:"infer_required"`
	Timezone      string `mapstructure:"timezone"`
}

var keys = []string{
	"db_type", "db_host", "db_port", "db_name", "db_user", "db_password",
	"bq_project", "bq_dataset", "bq_credentials",
	"log_level", "log_seq_url",
	"infer_required", "timezone",
}

// Load reads path (skipped when empty) and overlays the environment
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("db_host", "localhost")
	v.SetDefault("log_level", "info")

	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings needed to reach a warehouse
func (c *Config) Validate() error {
	if c.DBType == "" {
		return fmt.Errorf("DB_TYPE environment variable is required")
	}

	if strings.EqualFold(c.DBType, "bigquery") {
		if c.BQProject == "" || c.BQDataset == "" {
			return fmt.Errorf("BQ_PROJECT and BQ_DATASET environment variables are required for bigquery")
		}
		return nil
	}

	if c.DBName == "" {
		return fmt.Errorf("DB_NAME environment variable is required")
	}
	return nil
}

// Database returns the warehouse connection settings
func (c *Config) Database() database.Config {
	port := c.DBPort
	if port == "" {
		switch strings.ToLower(c.DBType) {
		case "mysql":
			port = "3306"
		case "postgres", "postgresql":
			port = "5432"
		}
	}

	return database.Config{
		Type:        c.DBType,
		Host:        c.DBHost,
		Port:        port,
		Database:    c.DBName,
		User:        c.DBUser,
		Password:    c.DBPassword,
		Project:     c.BQProject,
		Dataset:     c.BQDataset,
		Credentials: c.BQCredentials,
	}
}

// Location resolves the zone for naive date-times; empty means local time
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// TableOptions turns the conversion settings into table options
func (c *Config) TableOptions(logger *slog.Logger) ([]table.Option, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return []table.Option{
		table.WithLogger(logger),
		table.WithInferRequired(c.InferRequired),
		table.WithLocation(loc),
	}, nil
}
