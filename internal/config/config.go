// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/TomasB/sxgeo/internal/data"
	"github.com/TomasB/sxgeo/internal/sxgeo"
)

// Config is the service configuration.
type Config struct {
	Port        string
	GRPCPort    string // empty disables the gRPC server
	LogLevel    slog.Level
	DBPath      string
	DBMode      sxgeo.Mode
	CacheSize   int // 0 disables the cache
	CachePolicy data.CachePolicy
	Watch       bool
	Metrics     bool
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		Port:     get("PORT", "8080"),
		GRPCPort: get("GRPC_PORT", "9090"),
		LogLevel: LogLevel(get("LOG_LEVEL", "info")),
		DBPath:   get("DB_PATH", ""),
	}

	var errs []error
	if cfg.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if cfg.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH environment variable is required"))
	}

	var err error
	if cfg.DBMode, err = sxgeo.ParseMode(get("DB_MODE", "memory")); err != nil {
		errs = append(errs, fmt.Errorf("DB_MODE: %w", err))
	}
	if cfg.CachePolicy, err = data.ParseCachePolicy(get("CACHE_POLICY", "lru")); err != nil {
		errs = append(errs, fmt.Errorf("CACHE_POLICY: %w", err))
	}
	if cfg.CacheSize, err = strconv.Atoi(get("CACHE_SIZE", "4096")); err != nil || cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("CACHE_SIZE: invalid value %q", get("CACHE_SIZE", "")))
	}
	if cfg.Watch, err = strconv.ParseBool(get("DB_WATCH", "true")); err != nil {
		errs = append(errs, fmt.Errorf("DB_WATCH: %w", err))
	}
	if cfg.Metrics, err = strconv.ParseBool(get("METRICS", "true")); err != nil {
		errs = append(errs, fmt.Errorf("METRICS: %w", err))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// LogLevel converts a string log level to slog.Level. Unknown values map to
// info.
func LogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
