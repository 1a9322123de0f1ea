package config

import "strings"

// Defaults.
const (
	DefaultLogLevel       = "INFO"
	DefaultLogFormat      = "text"
	DefaultListingEntries = 512
	DefaultS3Driver       = DriverAWS
)

// ApplyDefaults fills zero-valued fields and normalizes the log level.
// Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Cache.ListingEntries == 0 {
		cfg.Cache.ListingEntries = DefaultListingEntries
	}

	if cfg.Backends.S3 == nil {
		cfg.Backends.S3 = make(map[string]any)
	}
	if cfg.Backends.OCI == nil {
		cfg.Backends.OCI = make(map[string]any)
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
