package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"langsift/internal/sample"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// EnvPrefix prefixes environment overrides, e.g. LANGSIFT_SAMPLE_MAXBYTES.
const EnvPrefix = "LANGSIFT"

// Config represents the complete langsift configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Sample   SampleConfig   `json:"sample" mapstructure:"sample"`
	Rules    RulesConfig    `json:"rules" mapstructure:"rules"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	Scan     ScanConfig     `json:"scan" mapstructure:"scan"`
	Fallback FallbackConfig `json:"fallback" mapstructure:"fallback"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// SampleConfig bounds the content read per file
type SampleConfig struct {
	MaxBytes int `json:"maxBytes" mapstructure:"maxBytes"`
}

// RulesConfig selects the rule source. An empty path means the built-in rules.
type RulesConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// CacheConfig contains classification cache configuration
type CacheConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	TtlSeconds int  `json:"ttlSeconds" mapstructure:"ttlSeconds"`
}

// ScanConfig contains batch scan configuration
type ScanConfig struct {
	Workers           int  `json:"workers" mapstructure:"workers"`
	ClassifyTimeoutMs int  `json:"classifyTimeoutMs" mapstructure:"classifyTimeoutMs"`
	SkipBinary        bool `json:"skipBinary" mapstructure:"skipBinary"`
}

// FallbackConfig controls extension-only detection when no heuristic decides
type FallbackConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// LoggingConfig contains logging configuration. File, when set, receives a
// copy of every record in addition to stderr.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file,omitempty" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Sample: SampleConfig{
			MaxBytes: sample.DefaultMaxBytes,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TtlSeconds: 7 * 24 * 3600,
		},
		Scan: ScanConfig{
			Workers:           4,
			ClassifyTimeoutMs: 2000,
			SkipBinary:        true,
		},
		Fallback: FallbackConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// LoadConfig loads configuration from .langsift/config.json under root.
// LANGSIFT_* environment variables override file values, and defaults fill
// anything left unset. A missing file is not an error.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".langsift"))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so that environment overrides apply even
// when the config file does not mention the key.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("sample.maxBytes", d.Sample.MaxBytes)
	v.SetDefault("rules.path", d.Rules.Path)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttlSeconds", d.Cache.TtlSeconds)
	v.SetDefault("scan.workers", d.Scan.Workers)
	v.SetDefault("scan.classifyTimeoutMs", d.Scan.ClassifyTimeoutMs)
	v.SetDefault("scan.skipBinary", d.Scan.SkipBinary)
	v.SetDefault("fallback.enabled", d.Fallback.Enabled)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
}

// Save writes the configuration to .langsift/config.json under root
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".langsift")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Sample.MaxBytes <= 0 {
		return &ConfigError{Field: "sample.maxBytes", Message: "must be positive"}
	}
	if c.Cache.TtlSeconds < 0 {
		return &ConfigError{Field: "cache.ttlSeconds", Message: "must not be negative"}
	}
	if c.Scan.Workers <= 0 {
		return &ConfigError{Field: "scan.workers", Message: "must be positive"}
	}
	if c.Scan.ClassifyTimeoutMs < 0 {
		return &ConfigError{Field: "scan.classifyTimeoutMs", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be 'human' or 'json'"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
