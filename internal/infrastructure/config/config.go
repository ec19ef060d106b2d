// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Traces    TraceSourceConfig
	Metrics   MetricsSourceConfig
	LLM       LLMConfig
	Detection DetectionConfig
	Training  TrainingConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// TraceSourceConfig points at the tracing backend used for recompute reads.
type TraceSourceConfig struct {
	BaseURL string        `envconfig:"TRACE_SOURCE_URL" default:"http://localhost:16686"`
	Timeout time.Duration `envconfig:"TRACE_SOURCE_TIMEOUT" default:"30s"`
}

// MetricsSourceConfig points at the infrastructure-metrics collaborator.
type MetricsSourceConfig struct {
	BaseURL string        `envconfig:"METRICS_SOURCE_URL" default:"http://localhost:9090"`
	Timeout time.Duration `envconfig:"METRICS_SOURCE_TIMEOUT" default:"5s"`
}

// LLMConfig holds the inference endpoint configuration.
type LLMConfig struct {
	BaseURL string        `envconfig:"LLM_URL" default:"http://localhost:11434"`
	Model   string        `envconfig:"LLM_MODEL" default:"llama3.1"`
	Timeout time.Duration `envconfig:"LLM_TIMEOUT" default:"2m"`
}

// DetectionConfig carries the anomaly policy knobs. The deviation cutoffs and
// the bucket confidence floor are tunable rather than hard-coded.
type DetectionConfig struct {
	CriticalDeviation float64       `envconfig:"SEV1_DEVIATION" default:"6"`
	MajorDeviation    float64       `envconfig:"SEV2_DEVIATION" default:"4"`
	ModerateDeviation float64       `envconfig:"SEV3_DEVIATION" default:"3"`
	MinorDeviation    float64       `envconfig:"SEV4_DEVIATION" default:"2"`
	LowDeviation      float64       `envconfig:"SEV5_DEVIATION" default:"1"`
	BucketFloor       int64         `envconfig:"BUCKET_CONFIDENCE_FLOOR" default:"30"`
	MinStdDevMs       float64       `envconfig:"MIN_STDDEV_MS" default:"1"`
	ActiveWindow      time.Duration `envconfig:"ACTIVE_ANOMALY_WINDOW" default:"15m"`
	HistoryLimit      int           `envconfig:"ANOMALY_HISTORY_LIMIT" default:"10000"`
	RecomputeWindow   time.Duration `envconfig:"RECOMPUTE_WINDOW" default:"24h"`
}

// TrainingConfig holds the feedback corpus location.
type TrainingConfig struct {
	Path string `envconfig:"TRAINING_LOG_PATH" default:"data/training.jsonl"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"200"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"400"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8090", Host: "0.0.0.0"},
		Traces:  TraceSourceConfig{BaseURL: "http://localhost:16686", Timeout: 30 * time.Second},
		Metrics: MetricsSourceConfig{BaseURL: "http://localhost:9090", Timeout: 5 * time.Second},
		LLM:     LLMConfig{BaseURL: "http://localhost:11434", Model: "llama3.1", Timeout: 2 * time.Minute},
		Detection: DetectionConfig{
			CriticalDeviation: 6,
			MajorDeviation:    4,
			ModerateDeviation: 3,
			MinorDeviation:    2,
			LowDeviation:      1,
			BucketFloor:       30,
			MinStdDevMs:       1,
			ActiveWindow:      15 * time.Minute,
			HistoryLimit:      10000,
			RecomputeWindow:   24 * time.Hour,
		},
		Training: TrainingConfig{Path: "data/training.jsonl"},
		Logging:  LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 200,
			Burst:             400,
			Enabled:           true,
		},
	}
}
