package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "intentgate.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "INTENTGATE_PORT")
	setString(&cfg.Server.CORSOrigin, "INTENTGATE_CORS_ORIGIN")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "INTENTGATE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "INTENTGATE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "INTENTGATE_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "INTENTGATE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "INTENTGATE_BREAKER_TIMEOUT")
	setString(&cfg.Constitution.Path, "INTENTGATE_CONSTITUTION")
	setDuration(&cfg.Constitution.CacheTTL, "INTENTGATE_CONSTITUTION_CACHE_TTL")
	setDuration(&cfg.Confirmation.WaitTimeout, "INTENTGATE_CONFIRMATION_TIMEOUT")
	setString(&cfg.Judge.CriteriaPath, "INTENTGATE_JUDGE_CRITERIA")
	setFloat64(&cfg.Judge.Threshold, "INTENTGATE_JUDGE_THRESHOLD")
	setBool(&cfg.Judge.Background, "INTENTGATE_JUDGE_BACKGROUND")
	setString(&cfg.Judge.ScorerURL, "INTENTGATE_SCORER_URL")
	setString(&cfg.Judge.ScorerModel, "INTENTGATE_SCORER_MODEL")
	setString(&cfg.Judge.ScorerAPIKey, "INTENTGATE_SCORER_API_KEY")
	setString(&cfg.Escalation.SlackWebhookURL, "SLACK_WEBHOOK_URL")
	setString(&cfg.Intent.Base, "INTENTGATE_INTENT_BASE")
	setInt64(&cfg.Cache.MaxSizeMB, "INTENTGATE_CACHE_SIZE_MB")
	setBool(&cfg.Telemetry.Enabled, "INTENTGATE_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "INTENTGATE_OTLP_ENDPOINT")
}

// validate checks invariants that would otherwise surface as confusing
// runtime failures.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if cfg.Constitution.Path == "" {
		return fmt.Errorf("constitution.path is required")
	}
	if cfg.Judge.Threshold < 0 || cfg.Judge.Threshold > 10 {
		return fmt.Errorf("judge.threshold must be within [0,10], got %v", cfg.Judge.Threshold)
	}
	if cfg.Confirmation.WaitTimeout <= 0 {
		return fmt.Errorf("confirmation.wait_timeout must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
