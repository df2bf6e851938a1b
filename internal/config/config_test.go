package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(strings.ToUpper(key), "")
		os.Unsetenv(strings.ToUpper(key))
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_TYPE", "mysql")
	t.Setenv("DB_NAME", "shop")
	t.Setenv("INFER_REQUIRED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.InferRequired)

	db := cfg.Database()
	assert.Equal(t, "3306", db.Port)
	assert.Equal(t, "shop", db.Database)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bqtable.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_type: postgres\ndb_name: fromfile\ndb_port: \"6543\"\ntimezone: UTC\n"), 0o644))
	t.Setenv("DB_NAME", "fromenv")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, "fromenv", cfg.DBName)
	assert.Equal(t, "6543", cfg.Database().Port)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing type", Config{}, "DB_TYPE environment variable is required"},
		{"missing name", Config{DBType: "postgres"}, "DB_NAME environment variable is required"},
		{"bigquery without dataset", Config{DBType: "bigquery", BQProject: "p"}, "BQ_PROJECT and BQ_DATASET"},
		{"bigquery", Config{DBType: "bigquery", BQProject: "p", BQDataset: "d"}, ""},
		{"sqlite", Config{DBType: "sqlite", DBName: "/tmp/x.db"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLocation(t *testing.T) {
	loc, err := (&Config{}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	_, err = (&Config{Timezone: "Mars/Olympus"}).Location()
	assert.Error(t, err)

	opts, err := (&Config{Timezone: "UTC"}).TableOptions(nil)
	require.NoError(t, err)
	assert.Len(t, opts, 3)
}
