package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default values applied before the config file and environment are read.
const (
	DefaultPort       = 8080
	DefaultDataDir    = "./data"
	DefaultModelPath  = "random_forest_model.json"
	DefaultLogLevel   = "INFO"
	DefaultEncoding   = "paired"
	DefaultColumns    = "declared"
	DefaultBackend    = "memory"
	EnvPrefix         = "HOME_ADVISOR"
	DefaultConfigName = "home-advisor"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Model   ModelConfig   `mapstructure:"model"`
	Price   PriceConfig   `mapstructure:"price"`
	History HistoryConfig `mapstructure:"history"`

	// Version is stamped by the binary, never read from file.
	Version string `mapstructure:"-"`
}

// ServerConfig controls the HTTP listener and the desktop shell.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	DataDir  string `mapstructure:"data_dir"`
	Headless bool   `mapstructure:"headless"`
}

// LogConfig selects the global log level.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ModelConfig locates the tree-ensemble artifact.
type ModelConfig struct {
	Path string `mapstructure:"path"`
	// Watch reloads the artifact whenever the file changes on disk.
	Watch bool `mapstructure:"watch"`
}

// PriceConfig selects the feature schema the price predictor encodes into.
type PriceConfig struct {
	// Encoding is one of: paired | yes-only.
	Encoding string `mapstructure:"encoding"`
	// Columns is one of: declared | model.
	Columns string `mapstructure:"columns"`
	// FeatureOrderFile optionally overrides the declared column order.
	FeatureOrderFile string `mapstructure:"feature_order_file"`
	// ErrorGuard turns prediction failures into a displayed message.
	ErrorGuard bool `mapstructure:"error_guard"`
}

// HistoryConfig selects where prediction history is kept.
type HistoryConfig struct {
	// Backend is one of: memory | sqlite.
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// SQLiteFile returns the journal path, defaulting to history.db in the data dir.
func (c Config) SQLiteFile() string {
	if c.History.SQLitePath != "" {
		return c.History.SQLitePath
	}
	return filepath.Join(c.Server.DataDir, "history.db")
}

// Load reads configuration from path (or home-advisor.yaml in the working
// directory when path is empty) and from HOME_ADVISOR_* environment
// variables. A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	return FromViper(v)
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.data_dir", DefaultDataDir)
	v.SetDefault("server.headless", false)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("model.path", DefaultModelPath)
	v.SetDefault("model.watch", false)
	v.SetDefault("price.encoding", DefaultEncoding)
	v.SetDefault("price.columns", DefaultColumns)
	v.SetDefault("price.feature_order_file", "")
	v.SetDefault("price.error_guard", false)
	v.SetDefault("history.backend", DefaultBackend)
	v.SetDefault("history.sqlite_path", "")
	return v
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks structural constraints on the parsed configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Price.Encoding {
	case "paired", "yes-only":
	default:
		return fmt.Errorf("price.encoding %q unknown: want paired|yes-only", c.Price.Encoding)
	}
	switch c.Price.Columns {
	case "declared", "model":
	default:
		return fmt.Errorf("price.columns %q unknown: want declared|model", c.Price.Columns)
	}
	switch c.History.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("history.backend %q unknown: want memory|sqlite", c.History.Backend)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}
	return nil
}
