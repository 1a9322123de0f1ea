// Package config loads preffs settings from a file, the environment and
// command-line flags.
//
// Configuration sources, in order of precedence:
//  1. Command-line flags bound with Load
//  2. Environment variables (PREFFS_*, with "." replaced by "_")
//  3. Configuration file (YAML, TOML or JSON)
//  4. Defaults
//
// Backend sections are kept as loose maps and decoded by the factory that
// consumes them, so adding a backend option does not change Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PREFFS"

// Config is the complete preffs configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Backends BackendsConfig `mapstructure:"backends"`
}

// LoggingConfig controls the logger built by NewLogger.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN or ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is "text" or "json".
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// CacheConfig sizes the directory listing cache.
type CacheConfig struct {
	ListingEntries int `mapstructure:"listing_entries" validate:"gt=0"`
}

// FetchConfig bounds backend fan-out. Zero means unbounded.
type FetchConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"gte=0"`
}

// BackendsConfig holds one section per backend family.
type BackendsConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`

	// S3 is decoded by the s3:// factory. Its "driver" key selects the
	// client library: "aws" (default) or "minio".
	S3 map[string]any `mapstructure:"s3"`

	// OCI is decoded by the oci:// factory.
	OCI map[string]any `mapstructure:"oci"`
}

// HTTPConfig configures the http:// and https:// backends.
type HTTPConfig struct {
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout" validate:"gte=0"`
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"max-concurrency": "fetch.max_concurrency",
	"listing-cache":   "cache.listing_entries",
}

// Load reads configuration from configPath, the environment and flags.
//
// An empty configPath searches the default config directory and tolerates
// a missing file; an explicit path must exist. flags may be nil; flags
// named in the flag table are bound to their keys.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Env lookups only apply to known keys.
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("cache.listing_entries", DefaultListingEntries)
	v.SetDefault("fetch.max_concurrency", 0)
	v.SetDefault("backends.http.timeout", time.Duration(0))

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(Dir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Dir returns the directory searched when no config file is given.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "preffs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "preffs")
}
