package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Storage drivers accepted by storage.driver
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

const configFileName = "config.yaml"

// Config is the typed view of config.yaml, AIHUB_* variables and flags
type Config struct {
	ConfigDir string        `mapstructure:"-"`
	Storage   StorageConfig `mapstructure:"storage"`
	Server    ServerConfig  `mapstructure:"server"`
	Log       LogConfig     `mapstructure:"log"`
}

// StorageConfig selects the workflow repository
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	RedisAddr  string `mapstructure:"redis_addr"`
}

// ServerConfig configures `aihub serve`
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	File       string `mapstructure:"file"`
	Debug      bool   `mapstructure:"debug"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", DriverFile)
	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.file", "")
	v.SetDefault("log.debug", false)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// resolveConfigDir picks the config directory.
// Priority: AIHUB_CONFIG_DIR, then the --config-dir flag, then ~/.aihub.
func resolveConfigDir(flagValue string) (string, error) {
	if envDir := os.Getenv("AIHUB_CONFIG_DIR"); envDir != "" {
		return envDir, nil
	}
	if flagValue != "" {
		return flagValue, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".aihub"), nil
}

// ensureConfigFile writes a default config.yaml when none exists
func ensureConfigFile(dir string) error {
	path := filepath.Join(dir, configFileName)
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		return err
	}

	defaults := map[string]any{
		"storage": map[string]any{"driver": DriverFile},
		"server":  map[string]any{"addr": ":8080"},
		"log":     map[string]any{"debug": false},
	}
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

// loadConfig reads config.yaml from dir, layers AIHUB_* variables and bound
// flags over it and returns the typed result.
func loadConfig(v *viper.Viper, dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := ensureConfigFile(dir); err != nil {
		return nil, err
	}

	setDefaults(v)
	v.SetConfigFile(filepath.Join(dir, configFileName))
	v.SetEnvPrefix("AIHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigDir = dir

	switch cfg.Storage.Driver {
	case DriverFile, DriverSQLite, DriverRedis:
	default:
		return nil, fmt.Errorf("unknown storage driver %q (want file, sqlite or redis)", cfg.Storage.Driver)
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(dir, "aihub.db")
	}
	return cfg, nil
}

// LogFilePath returns the configured log file, defaulting to logs/aihub.log
// under the config dir.
func (c *Config) LogFilePath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.ConfigDir, "logs", "aihub.log")
}
