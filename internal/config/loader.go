package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Default and kept when neither file, environment nor
// flags set a value.
const (
	DefaultAddr                      = ":8080"
	DefaultTritonURL                 = "http://paddleocr-vl-tritonserver:8000"
	DefaultMaxConcurrentRequests     = 16
	DefaultInferenceTimeoutSeconds   = 600
	DefaultHealthCheckTimeoutSeconds = 5
	DefaultLogLevel                  = "info"
	DefaultWorkers                   = 1
	DefaultMaxBodyBytes              = 64 << 20
)

// Config holds runtime parameters for the gateway.
// Zero values mean "unspecified" and are filled from Default by Merge.
type Config struct {
	Addr                      string   `json:"addr" yaml:"addr" toml:"addr"`
	TritonURL                 string   `json:"triton_url" yaml:"triton_url" toml:"triton_url"`
	MaxConcurrentRequests     int      `json:"max_concurrent_requests" yaml:"max_concurrent_requests" toml:"max_concurrent_requests"`
	InferenceTimeoutSeconds   int      `json:"inference_timeout_seconds" yaml:"inference_timeout_seconds" toml:"inference_timeout_seconds"`
	HealthCheckTimeoutSeconds int      `json:"health_check_timeout_seconds" yaml:"health_check_timeout_seconds" toml:"health_check_timeout_seconds"`
	DownstreamHealthURL       string   `json:"downstream_health_url" yaml:"downstream_health_url" toml:"downstream_health_url"`
	LogLevel                  string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	Workers                   int      `json:"workers" yaml:"workers" toml:"workers"`
	DeviceID                  string   `json:"device_id" yaml:"device_id" toml:"device_id"`
	FilterHealthAccessLog     *bool    `json:"filter_health_access_log" yaml:"filter_health_access_log" toml:"filter_health_access_log"`
	MaxBodyBytes              int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled               bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins        []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
}

// Default returns the built-in configuration.
func Default() Config {
	filter := true
	return Config{
		Addr:                      DefaultAddr,
		TritonURL:                 DefaultTritonURL,
		MaxConcurrentRequests:     DefaultMaxConcurrentRequests,
		InferenceTimeoutSeconds:   DefaultInferenceTimeoutSeconds,
		HealthCheckTimeoutSeconds: DefaultHealthCheckTimeoutSeconds,
		LogLevel:                  DefaultLogLevel,
		Workers:                   DefaultWorkers,
		FilterHealthAccessLog:     &filter,
		MaxBodyBytes:              DefaultMaxBodyBytes,
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Env variable names read by FromEnv.
const (
	EnvAddr                  = "HPS_ADDR"
	EnvTritonURL             = "HPS_TRITON_URL"
	EnvMaxConcurrentRequests = "HPS_MAX_CONCURRENT_REQUESTS"
	EnvInferenceTimeout      = "HPS_INFERENCE_TIMEOUT"
	EnvHealthCheckTimeout    = "HPS_HEALTH_CHECK_TIMEOUT"
	EnvDownstreamHealthURL   = "HPS_DOWNSTREAM_HEALTH_URL"
	EnvLogLevel              = "HPS_LOG_LEVEL"
	EnvWorkers               = "HPS_WORKERS"
	EnvDeviceID              = "HPS_DEVICE_ID"
	EnvFilterHealthAccessLog = "HPS_FILTER_HEALTH_ACCESS_LOG"
	EnvMaxBodyBytes          = "HPS_MAX_BODY_BYTES"
	EnvCORSOrigins           = "HPS_CORS_ALLOWED_ORIGINS"
)

// FromEnv builds a partial Config from environment variables. lookup is
// os.LookupEnv in production.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	str(EnvAddr, &cfg.Addr)
	str(EnvTritonURL, &cfg.TritonURL)
	str(EnvDownstreamHealthURL, &cfg.DownstreamHealthURL)
	str(EnvLogLevel, &cfg.LogLevel)
	str(EnvDeviceID, &cfg.DeviceID)
	for key, dst := range map[string]*int{
		EnvMaxConcurrentRequests: &cfg.MaxConcurrentRequests,
		EnvInferenceTimeout:      &cfg.InferenceTimeoutSeconds,
		EnvHealthCheckTimeout:    &cfg.HealthCheckTimeoutSeconds,
		EnvWorkers:               &cfg.Workers,
	} {
		if err := num(key, dst); err != nil {
			return cfg, err
		}
	}
	if v, ok := lookup(EnvMaxBodyBytes); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvMaxBodyBytes, err)
		}
		cfg.MaxBodyBytes = n
	}
	if v, ok := lookup(EnvFilterHealthAccessLog); ok && strings.TrimSpace(v) != "" {
		b := parseBool(v)
		cfg.FilterHealthAccessLog = &b
	}
	if v, ok := lookup(EnvCORSOrigins); ok {
		if origins := SplitCSV(v); len(origins) > 0 {
			cfg.CORSEnabled = true
			cfg.CORSAllowedOrigins = origins
		}
	}
	return cfg, nil
}

// parseBool accepts true/1/yes (any case); everything else is false.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// Merge returns base with every non-zero field of over applied on top.
func Merge(base, over Config) Config {
	out := base
	if over.Addr != "" {
		out.Addr = over.Addr
	}
	if over.TritonURL != "" {
		out.TritonURL = over.TritonURL
	}
	if over.MaxConcurrentRequests != 0 {
		out.MaxConcurrentRequests = over.MaxConcurrentRequests
	}
	if over.InferenceTimeoutSeconds != 0 {
		out.InferenceTimeoutSeconds = over.InferenceTimeoutSeconds
	}
	if over.HealthCheckTimeoutSeconds != 0 {
		out.HealthCheckTimeoutSeconds = over.HealthCheckTimeoutSeconds
	}
	if over.DownstreamHealthURL != "" {
		out.DownstreamHealthURL = over.DownstreamHealthURL
	}
	if over.LogLevel != "" {
		out.LogLevel = over.LogLevel
	}
	if over.Workers != 0 {
		out.Workers = over.Workers
	}
	if over.DeviceID != "" {
		out.DeviceID = over.DeviceID
	}
	if over.FilterHealthAccessLog != nil {
		v := *over.FilterHealthAccessLog
		out.FilterHealthAccessLog = &v
	}
	if over.MaxBodyBytes != 0 {
		out.MaxBodyBytes = over.MaxBodyBytes
	}
	if over.CORSEnabled {
		out.CORSEnabled = true
	}
	if len(over.CORSAllowedOrigins) > 0 {
		out.CORSAllowedOrigins = append([]string(nil), over.CORSAllowedOrigins...)
	}
	return out
}

// Resolve layers defaults, the optional config file at path, and the
// environment, then validates the result.
func Resolve(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = Merge(cfg, fileCfg)
	}
	envCfg, err := FromEnv(lookup)
	if err != nil {
		return cfg, err
	}
	cfg = Merge(cfg, envCfg)
	return cfg, cfg.Validate()
}

// Validate rejects values the gateway cannot run with.
func (c Config) Validate() error {
	if c.MaxConcurrentRequests < 1 {
		return fmt.Errorf("max_concurrent_requests must be >= 1, got %d", c.MaxConcurrentRequests)
	}
	if c.InferenceTimeoutSeconds < 1 {
		return fmt.Errorf("inference_timeout_seconds must be >= 1, got %d", c.InferenceTimeoutSeconds)
	}
	if c.HealthCheckTimeoutSeconds < 1 {
		return fmt.Errorf("health_check_timeout_seconds must be >= 1, got %d", c.HealthCheckTimeoutSeconds)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if strings.TrimSpace(c.TritonURL) == "" {
		return fmt.Errorf("triton_url is required")
	}
	return nil
}

// InferenceTimeout is InferenceTimeoutSeconds as a duration.
func (c Config) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceTimeoutSeconds) * time.Second
}

// HealthCheckTimeout is HealthCheckTimeoutSeconds as a duration.
func (c Config) HealthCheckTimeout() time.Duration {
	return time.Duration(c.HealthCheckTimeoutSeconds) * time.Second
}

// FilterHealthLogs reports whether health probes are kept out of the access log.
func (c Config) FilterHealthLogs() bool {
	return c.FilterHealthAccessLog == nil || *c.FilterHealthAccessLog
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empties.
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
