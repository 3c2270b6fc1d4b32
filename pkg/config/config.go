// Package config provides configuration management for the sptrsv-sim service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Rewrite   RewriteConfig   `mapstructure:"rewrite"`
	Compiler  CompilerConfig  `mapstructure:"compiler"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Sources   []SourceConfig  `mapstructure:"sources"`
}

// SourceConfig declares one DAG job source the daemon should start, mirroring
// internal/scheduler/source.SourceConfig's shape so it can be unmarshalled
// directly from YAML and handed to source.CreateSources.
type SourceConfig struct {
	Type    string                 `mapstructure:"type"`
	Name    string                 `mapstructure:"name"`
	Enabled bool                   `mapstructure:"enabled"`
	Options map[string]interface{} `mapstructure:"options"`
}

// RewriteConfig holds fan-in splitting configuration.
type RewriteConfig struct {
	DataDir   string `mapstructure:"data_dir"`
	Threshold int    `mapstructure:"threshold"`
	ChunkSize int    `mapstructure:"chunk_size"`
}

// CompilerConfig holds MEC compiler configuration.
type CompilerConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// SchedulerConfig holds the cycle-accurate simulator's hardware limits.
type SchedulerConfig struct {
	PELimit  int `mapstructure:"pe_limit"`
	NFULimit int `mapstructure:"nfu_limit"`
	MaxLC    int `mapstructure:"max_lc"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // postgres, mysql, sqlite, or clickhouse
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/sptrsv-sim")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Rewrite defaults mirror the reference rewriter's fixed chunking.
	v.SetDefault("rewrite.data_dir", "./data")
	v.SetDefault("rewrite.threshold", 5)
	v.SetDefault("rewrite.chunk_size", 5)

	// Compiler defaults
	v.SetDefault("compiler.output_dir", "./data/mec")

	// Scheduler defaults mirror the reference scheduler's hardware model.
	v.SetDefault("scheduler.pe_limit", 10)
	v.SetDefault("scheduler.nfu_limit", 1)
	v.SetDefault("scheduler.max_lc", 5000)

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "./data/sptrsv.db")
	v.SetDefault("database.max_conns", 10)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "sptrsv-sim")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "mysql", "sqlite", "clickhouse":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Scheduler.PELimit < 1 {
		return fmt.Errorf("scheduler pe_limit must be at least 1")
	}
	if c.Scheduler.NFULimit != 1 {
		return fmt.Errorf("scheduler nfu_limit must be 1")
	}
	if c.Rewrite.ChunkSize < 1 {
		return fmt.Errorf("rewrite chunk_size must be at least 1")
	}

	return nil
}

// EnsureDataDir creates the rewrite data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Rewrite.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Rewrite.DataDir, 0755)
}

// GetRunDir returns the run-specific directory path for a given run id.
func (c *Config) GetRunDir(runID string) string {
	return filepath.Join(c.Rewrite.DataDir, runID)
}
