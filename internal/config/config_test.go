package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Sample.MaxBytes != 64*1024 {
		t.Errorf("Sample.MaxBytes = %d, want %d", cfg.Sample.MaxBytes, 64*1024)
	}
	if cfg.Rules.Path != "" {
		t.Errorf("Rules.Path = %q, want built-in rules", cfg.Rules.Path)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if cfg.Scan.Workers <= 0 {
		t.Error("Scan.Workers should be positive")
	}
	if !cfg.Scan.SkipBinary {
		t.Error("binary files should be skipped by default")
	}
	if !cfg.Fallback.Enabled {
		t.Error("fallback should be enabled by default")
	}
	if cfg.Logging.Format != "human" {
		t.Errorf("Logging.Format = %q, want human", cfg.Logging.Format)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"unsupported version", func(c *Config) { c.Version = 99 }, "version"},
		{"zero sample", func(c *Config) { c.Sample.MaxBytes = 0 }, "sample.maxBytes"},
		{"negative ttl", func(c *Config) { c.Cache.TtlSeconds = -1 }, "cache.ttlSeconds"},
		{"no workers", func(c *Config) { c.Scan.Workers = 0 }, "scan.workers"},
		{"negative timeout", func(c *Config) { c.Scan.ClassifyTimeoutMs = -5 }, "scan.classifyTimeoutMs"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should return error")
			}
			cerr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() error type = %T, want *ConfigError", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cerr.Field, tt.field)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{
		Field:   "version",
		Message: "unsupported version 99",
	}

	got := err.Error()
	want := "config error in field 'version': unsupported version 99"

	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLoadConfig_Default(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	def := DefaultConfig()
	if cfg.Version != def.Version {
		t.Errorf("Version = %d, want %d (default)", cfg.Version, def.Version)
	}
	if cfg.Scan.Workers != def.Scan.Workers {
		t.Errorf("Scan.Workers = %d, want %d", cfg.Scan.Workers, def.Scan.Workers)
	}
	if cfg.Cache.TtlSeconds != def.Cache.TtlSeconds {
		t.Errorf("Cache.TtlSeconds = %d, want %d", cfg.Cache.TtlSeconds, def.Cache.TtlSeconds)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, ".langsift")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create .langsift dir: %v", err)
	}

	configContent := `{
		"version": 1,
		"sample": {"maxBytes": 4096},
		"rules": {"path": "rules/custom.yaml"},
		"scan": {"workers": 8}
	}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Sample.MaxBytes != 4096 {
		t.Errorf("Sample.MaxBytes = %d, want 4096", cfg.Sample.MaxBytes)
	}
	if cfg.Rules.Path != "rules/custom.yaml" {
		t.Errorf("Rules.Path = %q", cfg.Rules.Path)
	}
	if cfg.Scan.Workers != 8 {
		t.Errorf("Scan.Workers = %d, want 8", cfg.Scan.Workers)
	}
	// Unset keys keep their defaults.
	if !cfg.Scan.SkipBinary {
		t.Error("Scan.SkipBinary should keep its default")
	}
	if cfg.Scan.ClassifyTimeoutMs != DefaultConfig().Scan.ClassifyTimeoutMs {
		t.Errorf("Scan.ClassifyTimeoutMs = %d, want default", cfg.Scan.ClassifyTimeoutMs)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LANGSIFT_SAMPLE_MAXBYTES", "1024")
	t.Setenv("LANGSIFT_CACHE_ENABLED", "false")
	t.Setenv("LANGSIFT_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Sample.MaxBytes != 1024 {
		t.Errorf("Sample.MaxBytes = %d, want 1024", cfg.Sample.MaxBytes)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be overridden to false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, ".langsift")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(tmpDir); err == nil {
		t.Error("LoadConfig() should fail on invalid JSON")
	}
}

func TestConfig_Save(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Scan.Workers = 42
	cfg.Rules.Path = "my-rules.toml"

	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".langsift", "config.json")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Scan.Workers != 42 {
		t.Errorf("Scan.Workers = %d, want 42", loaded.Scan.Workers)
	}
	if loaded.Rules.Path != "my-rules.toml" {
		t.Errorf("Rules.Path = %q, want my-rules.toml", loaded.Rules.Path)
	}
}
