package engine

import (
	"fmt"
	"time"
)

// Config holds the tunable heuristics of the engine.
type Config struct {
	// AssumedEventDuration stands in for an unknown end time when testing
	// whether two postings describe the same event.
	AssumedEventDuration time.Duration

	// BaseThresholdKm is the proximity cutoff used in sparse areas and when
	// no venue density can be measured.
	BaseThresholdKm float64

	// DensitySampleSize caps how many events feed the density estimate.
	DensitySampleSize int

	// DefaultTimeBuffer is added around each event when testing overlap
	// unless the caller picks a different buffer.
	DefaultTimeBuffer time.Duration
}

// DefaultConfig returns the stock heuristics.
func DefaultConfig() Config {
	return Config{
		AssumedEventDuration: 2 * time.Hour,
		BaseThresholdKm:      0.3,
		DensitySampleSize:    200,
		DefaultTimeBuffer:    30 * time.Minute,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.AssumedEventDuration <= 0 {
		return fmt.Errorf("assumed_event_duration must be positive (got %v)", c.AssumedEventDuration)
	}
	if c.BaseThresholdKm < 0 {
		return fmt.Errorf("base_threshold_km cannot be negative (got %.3f)", c.BaseThresholdKm)
	}
	if c.DensitySampleSize < 2 {
		return fmt.Errorf("density_sample_size must be at least 2 (got %d)", c.DensitySampleSize)
	}
	if c.DensitySampleSize > 5000 {
		return fmt.Errorf("density_sample_size too large (got %d, max 5000)", c.DensitySampleSize)
	}
	if c.DefaultTimeBuffer < 0 {
		return fmt.Errorf("default_time_buffer cannot be negative (got %v)", c.DefaultTimeBuffer)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf("Config{AssumedDuration: %v, BaseThreshold: %.2fkm, SampleSize: %d, TimeBuffer: %v}",
		c.AssumedEventDuration, c.BaseThresholdKm, c.DensitySampleSize, c.DefaultTimeBuffer)
}

// Engine runs the matching pipeline with a fixed Config. It has no mutable
// state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// New validates cfg and returns an Engine bound to it.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

var defaultEngine = &Engine{cfg: DefaultConfig()}

// Default returns an Engine using DefaultConfig.
func Default() *Engine { return defaultEngine }
