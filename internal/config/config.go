// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package config loads engine configuration with koanf: struct defaults
// first, then an optional YAML file, then CINELENS_ environment overrides.
// The loaded config is validated before use.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinelens/config.yaml",
	"/etc/cinelens/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CINELENS_CONFIG"

// envPrefix is the prefix for environment variable overrides, e.g.
// CINELENS_PROFILE_MIN_RATINGS=5.
const envPrefix = "CINELENS_"

// Config is the root engine configuration.
type Config struct {
	Logging  LoggingConfig  `koanf:"logging"`
	Store    StoreConfig    `koanf:"store"`
	Cache    CacheConfig    `koanf:"cache"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Lookup   LookupConfig   `koanf:"lookup"`
	Profile  ProfileConfig  `koanf:"profile"`
	Scoring  ScoringConfig  `koanf:"scoring"`
	Neural   NeuralConfig   `koanf:"neural"`
	Learning LearningConfig `koanf:"learning"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// StoreConfig controls the Badger key-value store.
type StoreConfig struct {
	// Dir is the Badger data directory. Ignored when InMemory is true.
	Dir string `koanf:"dir"`

	// InMemory runs the store without durability. Used in tests and
	// ephemeral sessions.
	InMemory bool `koanf:"in_memory"`
}

// CatalogConfig locates the local catalog data used by the daemon's
// file-backed Content Lookup. Other lookup implementations ignore it.
type CatalogConfig struct {
	// Path is the catalog JSON file. Empty disables the file catalog.
	Path string `koanf:"path"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr" validate:"required_if=Enabled true"`
}

// CacheConfig bounds the catalog metadata cache.
type CacheConfig struct {
	Capacity int           `koanf:"capacity" validate:"min=1"`
	TTL      time.Duration `koanf:"ttl" validate:"min=1s"`
}

// LookupConfig controls batched catalog fetches and the circuit breaker.
type LookupConfig struct {
	// BatchSize is the number of items fetched per batch during
	// training and pre-caching. Batching bounds burst concurrency
	// against the metadata provider.
	BatchSize int `koanf:"batch_size" validate:"min=1"`

	// BatchPause is the pause between batches.
	BatchPause time.Duration `koanf:"batch_pause" validate:"min=0"`

	// BreakerFailureThreshold is the number of consecutive lookup
	// failures before the breaker opens.
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold" validate:"min=1"`

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration `koanf:"breaker_timeout" validate:"min=1s"`
}

// ProfileConfig controls the Profile Builder.
type ProfileConfig struct {
	// MinRatings is the minimum number of valid ratings (and resolved
	// items) required before a profile exists.
	MinRatings int `koanf:"min_ratings" validate:"min=1"`

	// ProfilingThreshold is the valid-rating count at which the builder
	// promotes initial -> profiling ends and testing begins.
	ProfilingThreshold int `koanf:"profiling_threshold" validate:"min=1"`

	// TestingSpan is how many ratings beyond ProfilingThreshold the
	// testing phase lasts before optimizing.
	TestingSpan int `koanf:"testing_span" validate:"min=1"`

	// EagerTrainThreshold is the resolved-item count at which a full
	// build eagerly retrains the learned scorer.
	EagerTrainThreshold int `koanf:"eager_train_threshold" validate:"min=1"`

	// AccuracyTolerance is the absolute rating-point tolerance used
	// when computing the profile accuracy score.
	AccuracyTolerance float64 `koanf:"accuracy_tolerance" validate:"gt=0"`
}

// ScoringConfig controls the content-based scorer.
type ScoringConfig struct {
	// MinSimilarity excludes candidates scoring below this threshold.
	MinSimilarity float64 `koanf:"min_similarity" validate:"gte=0,lte=1"`

	// MaxResults caps the ranked list.
	MaxResults int `koanf:"max_results" validate:"min=1"`
}

// NeuralConfig controls the learned scorer.
type NeuralConfig struct {
	Epochs       int     `koanf:"epochs" validate:"min=1"`
	BatchSize    int     `koanf:"batch_size" validate:"min=1"`
	LearningRate float64 `koanf:"learning_rate" validate:"gt=0,lte=1"`

	// MinSamples is the minimum training-sample count; fewer aborts
	// training with an insufficient-data result.
	MinSamples int `koanf:"min_samples" validate:"min=1"`

	// ValidityWindow is how long a persisted model stays valid.
	ValidityWindow time.Duration `koanf:"validity_window" validate:"min=1h"`

	// MinAccuracy is the accuracy floor below which a persisted model
	// is considered invalid and retrained.
	MinAccuracy float64 `koanf:"min_accuracy" validate:"gte=0,lt=1"`

	// AccuracyTolerance is the absolute error (0-1 scale) within which
	// an in-sample prediction counts as accurate.
	AccuracyTolerance float64 `koanf:"accuracy_tolerance" validate:"gt=0,lt=1"`
}

// LearningConfig controls the real-time learning loop.
type LearningConfig struct {
	// MaxEvents caps the learning-event log (FIFO eviction).
	MaxEvents int `koanf:"max_events" validate:"min=1"`

	// RebuildThreshold is the valid-rating count at which an event
	// triggers a full profile rebuild.
	RebuildThreshold int `koanf:"rebuild_threshold" validate:"min=1"`

	// RetrainMinRatings gates retrain decisions.
	RetrainMinRatings int `koanf:"retrain_min_ratings" validate:"min=1"`

	// RetrainInterval is the time since the previous event after which
	// a retrain is allowed regardless of significance.
	RetrainInterval time.Duration `koanf:"retrain_interval" validate:"min=1m"`

	// SignificantDelta is the rating-value change that makes an update
	// significant enough to retrain.
	SignificantDelta int `koanf:"significant_delta" validate:"min=1"`

	// TestingThreshold and OptimizingThreshold are the incremental
	// phase-promotion counts. They intentionally differ from the
	// Profile Builder's thresholds; both sets are live.
	TestingThreshold    int `koanf:"testing_threshold" validate:"min=1"`
	OptimizingThreshold int `koanf:"optimizing_threshold" validate:"min=1"`

	// Adaptive learning-rate self-tuning bounds and step sizes.
	RateMin      float64 `koanf:"rate_min" validate:"gt=0"`
	RateMax      float64 `koanf:"rate_max" validate:"gt=0"`
	RateStepUp   float64 `koanf:"rate_step_up" validate:"gt=0"`
	RateStepDown float64 `koanf:"rate_step_down" validate:"gt=0"`
}

// Default returns a Config with all default values. Defaults are applied
// first, then overridden by config file and environment variables.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Dir:      "/data/cinelens",
			InMemory: false,
		},
		Cache: CacheConfig{
			Capacity: 2000,
			TTL:      30 * time.Minute,
		},
		Catalog: CatalogConfig{
			Path: "",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Lookup: LookupConfig{
			BatchSize:               5,
			BatchPause:              100 * time.Millisecond,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Profile: ProfileConfig{
			MinRatings:          5,
			ProfilingThreshold:  50,
			TestingSpan:         20,
			EagerTrainThreshold: 20,
			AccuracyTolerance:   2.0,
		},
		Scoring: ScoringConfig{
			MinSimilarity: 0.1,
			MaxResults:    20,
		},
		Neural: NeuralConfig{
			Epochs:            30,
			BatchSize:         8,
			LearningRate:      0.01,
			MinSamples:        10,
			ValidityWindow:    14 * 24 * time.Hour,
			MinAccuracy:       0.25,
			AccuracyTolerance: 0.15,
		},
		Learning: LearningConfig{
			MaxEvents:           1000,
			RebuildThreshold:    10,
			RetrainMinRatings:   20,
			RetrainInterval:     24 * time.Hour,
			SignificantDelta:    2,
			TestingThreshold:    50,
			OptimizingThreshold: 100,
			RateMin:             0.05,
			RateMax:             0.2,
			RateStepUp:          0.01,
			RateStepDown:        0.005,
		},
	}
}

// Load builds the effective configuration: defaults, then the first config
// file found (or CINELENS_CONFIG), then environment overrides.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Learning.RateMin > cfg.Learning.RateMax {
		return fmt.Errorf("invalid configuration: learning.rate_min %.3f > learning.rate_max %.3f",
			cfg.Learning.RateMin, cfg.Learning.RateMax)
	}
	return nil
}

// envMappings maps environment variable names (minus the CINELENS_ prefix,
// lowercased) to koanf config paths. Only listed variables are honored;
// everything engine-tunable goes through the config file.
var envMappings = map[string]string{
	"log_level":            "logging.level",
	"log_format":           "logging.format",
	"store_dir":            "store.dir",
	"store_in_memory":      "store.in_memory",
	"catalog_path":         "catalog.path",
	"metrics_enabled":      "metrics.enabled",
	"metrics_addr":         "metrics.addr",
	"cache_capacity":       "cache.capacity",
	"cache_ttl":            "cache.ttl",
	"lookup_batch_size":    "lookup.batch_size",
	"lookup_batch_pause":   "lookup.batch_pause",
	"profile_min_ratings":  "profile.min_ratings",
	"neural_epochs":        "neural.epochs",
	"neural_learning_rate": "neural.learning_rate",
	"learning_max_events":  "learning.max_events",
}

// envTransformFunc transforms environment variable names to koanf config
// paths, e.g. CINELENS_LOG_LEVEL -> logging.level. Unknown variables are
// dropped.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if path, ok := envMappings[key]; ok {
		return path
	}
	return ""
}

// findConfigFile returns the first existing config file path, honoring the
// CINELENS_CONFIG override.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
