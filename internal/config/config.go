// Package config provides hierarchical configuration loading for IntentGate.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the IntentGate service.
type Config struct {
	Server       Server       `yaml:"server"`
	NATS         NATS         `yaml:"nats"`
	Logging      Logging      `yaml:"logging"`
	Breaker      Breaker      `yaml:"breaker"`
	Constitution Constitution `yaml:"constitution"`
	Confirmation Confirmation `yaml:"confirmation"`
	Judge        Judge        `yaml:"judge"`
	Escalation   Escalation   `yaml:"escalation"`
	Intent       Intent       `yaml:"intent"`
	Cache        Cache        `yaml:"cache"`
	Telemetry    Telemetry    `yaml:"telemetry"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// NATS holds the optional event sink configuration. An empty URL disables
// the sink; audit and escalation events then go to logs only.
type NATS struct {
	URL string `yaml:"url"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for outbound HTTP calls
// (scorer, escalation webhook).
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Constitution holds rule document configuration.
type Constitution struct {
	Path     string        `yaml:"path"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // 0 disables caching: re-read per evaluation
}

// Confirmation holds human-gate configuration.
type Confirmation struct {
	WaitTimeout time.Duration `yaml:"wait_timeout"` // blocking-wait variant only
}

// Judge holds post-execution evaluation configuration.
type Judge struct {
	CriteriaPath string  `yaml:"criteria_path"`
	Threshold    float64 `yaml:"threshold"`
	Background   bool    `yaml:"background"`
	ScorerURL    string  `yaml:"scorer_url"`
	ScorerModel  string  `yaml:"scorer_model"`
	ScorerAPIKey string  `yaml:"scorer_api_key"`
}

// Escalation holds escalation sink configuration. An empty webhook URL
// falls back to the local log notifier.
type Escalation struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

// Intent holds dynamic instruction configuration.
type Intent struct {
	Base       string            `yaml:"base"`
	Strategies map[string]string `yaml:"strategies"`
}

// Cache holds in-process cache configuration.
type Cache struct {
	MaxSizeMB int64 `yaml:"max_size_mb"`
}

// Telemetry holds OpenTelemetry export configuration.
type Telemetry struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Logging: Logging{
			Level:   "info",
			Service: "intentgate",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Constitution: Constitution{
			Path:     "constitutions/acme_corp.yaml",
			CacheTTL: 0,
		},
		Confirmation: Confirmation{
			WaitTimeout: 60 * time.Second,
		},
		Judge: Judge{
			CriteriaPath: "criteria/brand_voice.txt",
			Threshold:    7,
			Background:   true,
			ScorerModel:  "sonar-pro",
		},
		Intent: Intent{
			Base: "You are a support agent for Acme Corp.",
		},
		Cache: Cache{
			MaxSizeMB: 16,
		},
		Telemetry: Telemetry{
			OTLPEndpoint: "localhost:4317",
		},
	}
}
