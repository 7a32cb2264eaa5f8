// Package config loads server and CLI configuration.
//
// Values are layered: struct defaults, then an optional YAML file, then
// environment variables. A .env file in the working directory is loaded into
// the environment first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched in order when PathEnvVar is unset.
var DefaultPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vinyl-tracker/config.yaml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Importer ImporterConfig `koanf:"importer"`
	Catalog  CatalogConfig  `koanf:"catalog"`
}

type ServerConfig struct {
	Port           int      `koanf:"port" validate:"min=1,max=65535"`
	CORSOrigins    []string `koanf:"cors_origins"`
	RateLimitRPS   float64  `koanf:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst int      `koanf:"rate_limit_burst" validate:"min=1"`
	// FrontendDir serves a built dashboard when set.
	FrontendDir    string   `koanf:"frontend_dir"`
}

type DatabaseConfig struct {
	Driver   string `koanf:"driver" validate:"oneof=sqlite postgres mysql"`
	DSN      string `koanf:"dsn" validate:"required"`
	LogLevel string `koanf:"log_level" validate:"oneof=silent error warn info"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// ImporterConfig drives the inbox import worker.
type ImporterConfig struct {
	Enabled      bool          `koanf:"enabled"`
	InboxDir     string        `koanf:"inbox_dir" validate:"required_if=Enabled true"`
	ProcessedDir string        `koanf:"processed_dir" validate:"required_if=Enabled true"`
	Interval     time.Duration `koanf:"interval" validate:"min=1s"`
}

type CatalogConfig struct {
	CacheSize       int     `koanf:"cache_size" validate:"min=1"`
	SearchThreshold float64 `koanf:"search_threshold" validate:"gte=0,lte=1"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			CORSOrigins:    []string{"http://localhost:3000"},
			RateLimitRPS:   5,
			RateLimitBurst: 20,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			DSN:      "./data/vinyl.db",
			LogLevel: "warn",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Importer: ImporterConfig{
			Enabled:      false,
			InboxDir:     "./data/inbox",
			ProcessedDir: "./data/processed",
			Interval:     time.Minute,
		},
		Catalog: CatalogConfig{
			CacheSize:       16,
			SearchThreshold: 0.7,
		},
	}
}

// sliceConfigPaths hold comma-separated lists when set from the environment.
var sliceConfigPaths = []string{"server.cors_origins"}

// envMappings covers variable names kept from the single-binary deployment.
var envMappings = map[string]string{
	"port":                 "server.port",
	"cors_allowed_origins": "server.cors_origins",
	"db_path":              "database.dsn",
	"db_driver":            "database.driver",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
	"frontend_dist_path":   "server.frontend_dir",
}

var validate = validator.New()

// Load builds the configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// VINYL_DATABASE_DSN -> database.dsn, plus the legacy names in envMappings.
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps an environment variable to a koanf path. Variables that
// are neither prefixed nor listed in envMappings return "" and are skipped.
func envTransform(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	rest, ok := strings.CutPrefix(key, "vinyl_")
	if !ok {
		return ""
	}
	section, field, ok := strings.Cut(rest, "_")
	if !ok {
		return ""
	}
	return section + "." + field
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
