package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/d70-t/preffs"
)

// Options translates cfg into filesystem options. logger may be nil.
func Options(cfg *Config, logger *slog.Logger) ([]preffs.Option, error) {
	regOpts, err := Registry(cfg)
	if err != nil {
		return nil, err
	}
	return []preffs.Option{
		preffs.WithLogger(logger),
		preffs.WithListingCacheSize(cfg.Cache.ListingEntries),
		preffs.WithMaxConcurrentFetches(cfg.Fetch.MaxConcurrency),
		preffs.WithRegistryOptions(regOpts...),
	}, nil
}

// NewLogger builds a slog logger writing to w.
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
