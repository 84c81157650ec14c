// Package calibration collects raw glove data while the wearer holds known
// poses and turns it into sensor ranges.
package calibration

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by the state machines in this package.
var (
	ErrCancelled         = errors.New("calibration cancelled")
	ErrInvalidTransition = errors.New("invalid calibration transition")
)

// Config holds the tuning parameters of guided and quick calibration.
type Config struct {
	// StabilityWindow is the number of recent samples whose variance decides
	// whether a pose is held still.
	StabilityWindow int `yaml:"stability_window"`

	// VarianceThreshold is the largest per-channel variance (raw units squared)
	// that still counts as holding still.
	VarianceThreshold float64 `yaml:"variance_threshold"`

	// MinStableDuration is how long the pose must stay still before a stage
	// starts collecting.
	MinStableDuration time.Duration `yaml:"min_stable_duration"`

	// MinSamplesPerStage is the number of collected samples required before a
	// stage may be completed.
	MinSamplesPerStage int `yaml:"min_samples_per_stage"`

	// AutoAdvanceSamples completes a stage automatically once this many samples
	// were collected. 0 waits for an explicit Next.
	AutoAdvanceSamples int `yaml:"auto_advance_samples"`

	// NoiseFloor is the smallest usable raw span of a channel. Narrower
	// channels are flagged uncalibrated when a range is sealed.
	NoiseFloor float32 `yaml:"noise_floor"`

	// DebounceMargin is how far outside the current bounds a reading must be
	// before quick calibration widens a channel.
	DebounceMargin float32 `yaml:"debounce_margin"`

	// MaxDataPoints bounds the data point buffer; the oldest points are dropped.
	MaxDataPoints int `yaml:"max_data_points"`

	// SmoothingSamples is the period of the weighted moving average applied
	// when quick calibration compiles a range.
	SmoothingSamples int `yaml:"smoothing_samples"`

	// AutoEndAfter ends quick calibration after this long. 0 runs indefinitely.
	AutoEndAfter time.Duration `yaml:"auto_end_after"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		StabilityWindow:    10,
		VarianceThreshold:  0.5,
		MinStableDuration:  500 * time.Millisecond,
		MinSamplesPerStage: 20,
		AutoAdvanceSamples: 0,
		NoiseFloor:         0.01,
		DebounceMargin:     0.005,
		MaxDataPoints:      60000,
		SmoothingSamples:   5,
		AutoEndAfter:       0,
	}
}

// Validate rejects values that would stall or break a sequence.
func (c Config) Validate() error {
	switch {
	case c.StabilityWindow < 2:
		return fmt.Errorf("stability window %d: need at least 2 samples", c.StabilityWindow)
	case c.VarianceThreshold <= 0:
		return fmt.Errorf("variance threshold %v must be positive", c.VarianceThreshold)
	case c.MinStableDuration < 0:
		return fmt.Errorf("min stable duration %v is negative", c.MinStableDuration)
	case c.MinSamplesPerStage < 1:
		return fmt.Errorf("min samples per stage %d: need at least 1", c.MinSamplesPerStage)
	case c.AutoAdvanceSamples < 0:
		return fmt.Errorf("auto advance samples %d is negative", c.AutoAdvanceSamples)
	case c.NoiseFloor < 0 || c.DebounceMargin < 0:
		return fmt.Errorf("noise floor and debounce margin must not be negative")
	case c.MaxDataPoints < 1:
		return fmt.Errorf("max data points %d: need at least 1", c.MaxDataPoints)
	case c.SmoothingSamples < 1:
		return fmt.Errorf("smoothing samples %d: need at least 1", c.SmoothingSamples)
	case c.AutoEndAfter < 0:
		return fmt.Errorf("auto end after %v is negative", c.AutoEndAfter)
	}
	return nil
}
