package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
database:
  type: postgres
  host: localhost
storage:
  type: local
`
	err := os.WriteFile(configFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := Load(configFile)
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, 5, cfg.Rewrite.Threshold)
	assert.Equal(t, 5, cfg.Rewrite.ChunkSize)
	assert.Equal(t, 10, cfg.Scheduler.PELimit)
	assert.Equal(t, 1, cfg.Scheduler.NFULimit)
	assert.Equal(t, 5000, cfg.Scheduler.MaxLC)
}

func TestLoad_CustomValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
rewrite:
  threshold: 8
  chunk_size: 4
database:
  type: postgres
  host: db.example.com
  port: 5432
  database: sptrsv
  user: admin
  password: secret
storage:
  type: local
  local_path: /tmp/storage
scheduler:
  pe_limit: 16
  nfu_limit: 1
  max_lc: 10000
`
	err := os.WriteFile(configFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Rewrite.Threshold)
	assert.Equal(t, 4, cfg.Rewrite.ChunkSize)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "sptrsv", cfg.Database.Database)
	assert.Equal(t, 16, cfg.Scheduler.PELimit)
	assert.Equal(t, 10000, cfg.Scheduler.MaxLC)
}

func TestLoad_InvalidDatabaseType(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
database:
  type: oracle
  host: localhost
storage:
  type: local
`
	err := os.WriteFile(configFile, []byte(content), 0644)
	require.NoError(t, err)

	_, err = Load(configFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestLoad_SQLiteDatabaseType(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
database:
  type: sqlite
  database: /tmp/sptrsv.db
storage:
  type: local
`
	err := os.WriteFile(configFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Type)
}

func TestLoad_ClickHouseDatabaseType(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
database:
  type: clickhouse
  host: localhost
  port: 9000
  database: sptrsv
storage:
  type: local
`
	err := os.WriteFile(configFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", cfg.Database.Type)
}

func TestLoad_COSWithCredentials(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
database:
  type: postgres
  host: localhost
storage:
  type: cos
  bucket: test-bucket
  region: ap-guangzhou
  secret_id: test-id
  secret_key: test-key
`
	err := os.WriteFile(configFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, "cos", cfg.Storage.Type)
	assert.Equal(t, "test-bucket", cfg.Storage.Bucket)
}

func TestValidate_InvalidDatabaseType(t *testing.T) {
	cfg := &Config{
		Database:  DatabaseConfig{Type: "oracle"},
		Storage:   StorageConfig{Type: "local"},
		Scheduler: SchedulerConfig{PELimit: 1, NFULimit: 1},
		Rewrite:   RewriteConfig{ChunkSize: 5},
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestValidate_InvalidPELimit(t *testing.T) {
	cfg := &Config{
		Database:  DatabaseConfig{Type: "postgres"},
		Storage:   StorageConfig{Type: "local"},
		Scheduler: SchedulerConfig{PELimit: 0, NFULimit: 1},
		Rewrite:   RewriteConfig{ChunkSize: 5},
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pe_limit must be at least 1")
}

func TestValidate_RejectsMultiNFU(t *testing.T) {
	cfg := &Config{
		Database:  DatabaseConfig{Type: "postgres"},
		Storage:   StorageConfig{Type: "local"},
		Scheduler: SchedulerConfig{PELimit: 10, NFULimit: 4},
		Rewrite:   RewriteConfig{ChunkSize: 5},
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nfu_limit must be 1")
}

func TestGetRunDir(t *testing.T) {
	cfg := &Config{
		Rewrite: RewriteConfig{DataDir: "/tmp/data"},
	}

	runDir := cfg.GetRunDir("run-uuid-123")
	assert.Equal(t, "/tmp/data/run-uuid-123", runDir)
}

func TestEnsureDataDir(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "rewrite", "data")

	cfg := &Config{
		Rewrite: RewriteConfig{DataDir: dataDir},
	}

	err := cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(dataDir)
	assert.NoError(t, err)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadFromReader(t *testing.T) {
	content := []byte(`
database:
  type: mysql
  host: mysql.local
storage:
  type: local
`)
	cfg, err := LoadFromReader("yaml", content)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, "mysql.local", cfg.Database.Host)
}
