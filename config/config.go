// Package config holds the explicit EngineConfig value threaded through
// every constructor in this repository. There is no mutable global
// configuration anywhere in the core.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig is the full tunable surface for the recognition and
// aggregation pipeline, one field per configuration knob, with yaml tags
// so it can be loaded from a config.yaml on disk.
type EngineConfig struct {
	SampleRate    int     `yaml:"sample_rate"`
	WindowSize    int     `yaml:"window_size"`
	OverlapRatio  float64 `yaml:"overlap_ratio"`
	FanValue      int     `yaml:"fan_value"`
	AmpMin        float64 `yaml:"amp_min"`
	PeakNeighbors int     `yaml:"peak_neighborhood"`
	MinHashDeltaT int     `yaml:"min_hash_dt"`
	MaxHashDeltaT int     `yaml:"max_hash_dt"`
	// HashReduction is the number of hex characters to keep from the
	// hash digest. The underlying hash is 64-bit (16 hex chars wide), so
	// any value >= 16 keeps the full digest; the documented default of
	// 20 is preserved here for fidelity but has no further effect
	// beyond 16.
	HashReduction int `yaml:"hash_reduction"`

	MinMatchCount int     `yaml:"min_match_count"`
	MinInputConf  float64 `yaml:"min_input_conf"`
	MinDBConf     float64 `yaml:"min_db_conf"`

	AggregationWindowMinutes float64 `yaml:"aggregation_window_minutes"`
	MinSessionSeconds        float64 `yaml:"min_session_seconds"`
	MinSessionCount          int     `yaml:"min_session_count"`
	OverlapGuardSeconds      float64 `yaml:"overlap_guard_seconds"`
	RoyaltyRatePerMinute     float64 `yaml:"royalty_rate_per_minute"`

	RecognitionTimeout float64 `yaml:"recognition_timeout_seconds"`
}

// Default returns the documented field-for-field production defaults.
func Default() EngineConfig {
	return EngineConfig{
		SampleRate:    44100,
		WindowSize:    4096,
		OverlapRatio:  0.5,
		FanValue:      15,
		AmpMin:        -20,
		PeakNeighbors: 10,
		MinHashDeltaT: 0,
		MaxHashDeltaT: 200,
		HashReduction: 20,

		MinMatchCount: 50,
		MinInputConf:  20.0,
		MinDBConf:     5.0,

		AggregationWindowMinutes: 3,
		MinSessionSeconds:        30,
		MinSessionCount:          3,
		OverlapGuardSeconds:      60,
		RoyaltyRatePerMinute:     0.10,

		RecognitionTimeout: 10,
	}
}

// Option is a functional option for programmatic construction.
type Option func(*EngineConfig)

func WithWindowSize(n int) Option       { return func(c *EngineConfig) { c.WindowSize = n } }
func WithFanValue(n int) Option         { return func(c *EngineConfig) { c.FanValue = n } }
func WithAmpMin(db float64) Option      { return func(c *EngineConfig) { c.AmpMin = db } }
func WithThresholds(minMatch int, minInput, minDB float64) Option {
	return func(c *EngineConfig) {
		c.MinMatchCount = minMatch
		c.MinInputConf = minInput
		c.MinDBConf = minDB
	}
}

// New builds an EngineConfig from the defaults plus any options.
func New(opts ...Option) EngineConfig {
	cfg := Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Load reads an EngineConfig from a YAML file, falling back to the
// documented defaults for any field the file leaves unset.
func Load(path string) (EngineConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate rejects configs that would make the DSP pipeline
// meaningless. The confidence-gate thresholds and the aggregation
// settings are not checked.
func (c EngineConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid config: sample_rate must be positive")
	}
	if c.WindowSize <= 0 || c.WindowSize&(c.WindowSize-1) != 0 {
		return fmt.Errorf("invalid config: window_size must be a positive power of 2")
	}
	if c.OverlapRatio < 0 || c.OverlapRatio >= 1 {
		return fmt.Errorf("invalid config: overlap_ratio must be in [0, 1)")
	}
	if c.FanValue < 1 {
		return fmt.Errorf("invalid config: fan_value must be >= 1")
	}
	if c.HashReduction < 1 {
		return fmt.Errorf("invalid config: hash_reduction must be >= 1")
	}
	if c.MinHashDeltaT > c.MaxHashDeltaT {
		return fmt.Errorf("invalid config: min_hash_dt must be <= max_hash_dt")
	}
	return nil
}

// HopSize is the derived STFT hop length in samples.
func (c EngineConfig) HopSize() int {
	return int(float64(c.WindowSize) * (1 - c.OverlapRatio))
}
