// Package config loads the layer's ambient settings from the environment.
// Everything here is a default; per-table and per-call options always win.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	Service       ServiceConfig
	Scan          ScanConfig
	NDJSON        NDJSONConfig
	HTTP          HTTPConfig
	S3            S3Config
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type ScanConfig struct {
	// BatchSize bounds rows per emitted batch when a scan request does
	// not set its own.
	BatchSize int
}

type NDJSONConfig struct {
	// InferRows bounds how many leading records schema inference samples.
	InferRows int
}

type HTTPConfig struct {
	FetchTimeout time.Duration
}

type S3Config struct {
	// Endpoint overrides the AWS endpoint, e.g. a MinIO host in tests.
	Endpoint string
	UseSSL   bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func Default() Config {
	return Config{
		Service: ServiceConfig{Name: "fedscan"},
		Scan:    ScanConfig{BatchSize: 1024},
		NDJSON:  NDJSONConfig{InferRows: 100},
		HTTP:    HTTPConfig{FetchTimeout: 30 * time.Second},
		S3:      S3Config{Endpoint: "", UseSSL: true},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelInfo,
			LogJSON:  true,
		},
	}
}

func Load(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}
	cfg := Default()

	if err := applyString(lookup, "FEDSCAN_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FEDSCAN_SCAN_BATCH_SIZE", &cfg.Scan.BatchSize); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "FEDSCAN_NDJSON_INFER_ROWS", &cfg.NDJSON.InferRows); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "FEDSCAN_HTTP_FETCH_TIMEOUT", &cfg.HTTP.FetchTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FEDSCAN_S3_ENDPOINT", &cfg.S3.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FEDSCAN_S3_USE_SSL", &cfg.S3.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FEDSCAN_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "FEDSCAN_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Scan.BatchSize <= 0 {
		return Config{}, fmt.Errorf("scan batch size must be positive")
	}
	if cfg.NDJSON.InferRows < 0 {
		return Config{}, fmt.Errorf("ndjson infer rows must be >= 0")
	}
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
