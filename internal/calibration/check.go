package calibration

import (
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/sensor"
)

// CheckStage is the conclusion of a start-up calibration check.
type CheckStage uint8

const (
	// CheckMoveFingers waits for the wearer to move so ranges can be compared.
	CheckMoveFingers CheckStage = iota
	// CheckCalibrationNeeded means the stored range no longer fits.
	CheckCalibrationNeeded
	// CheckCalibrating means a new calibration is running.
	CheckCalibrating
	// CheckDone means the stored range can be used.
	CheckDone
)

var checkStageNames = [...]string{"move_fingers", "calibration_needed", "calibrating", "done"}

func (c CheckStage) String() string {
	if int(c) < len(checkStageNames) {
		return checkStageNames[c]
	}
	return fmt.Sprintf("check_stage(%d)", c)
}

// MarshalText encodes the stage by name.
func (c CheckStage) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// CheckConfig holds the timers and thresholds of a Check.
type CheckConfig struct {
	// PerfectThresholdTime is how long the movement must match the stored
	// range before it is accepted.
	PerfectThresholdTime time.Duration `yaml:"perfect_threshold_time"`
	// MinMoveTime is how long after moving the minimum amount the stored
	// range may still be reached before the hand is considered different.
	MinMoveTime time.Duration `yaml:"min_move_time"`
	// OutOfBoundsTime is how long readings may stay outside the stored range.
	OutOfBoundsTime time.Duration `yaml:"out_of_bounds_time"`
	// Tolerance is the fraction of a stored span that still counts as the same.
	Tolerance float64 `yaml:"tolerance"`
	// MinMove is the fraction of every stored span that counts as having moved.
	MinMove float64 `yaml:"min_move"`
}

// DefaultCheckConfig returns a CheckConfig with sensible default values.
func DefaultCheckConfig() CheckConfig {
	return CheckConfig{
		PerfectThresholdTime: 500 * time.Millisecond,
		MinMoveTime:          3 * time.Second,
		OutOfBoundsTime:      100 * time.Millisecond,
		Tolerance:            0.15,
		MinMove:              0.3,
	}
}

// Check decides at start-up whether the stored range of a glove still fits
// the current wearer, by watching the range they move through.
type Check struct {
	cfg     CheckConfig
	last    *sensor.Range
	current *sensor.Range
	stage   CheckStage

	lastTime     time.Time
	atThreshold  time.Duration
	sinceMinMove time.Duration
	outOfBounds  time.Duration
	movedMinimum bool
	mu           sync.Mutex
}

// NewCheck creates a check against the stored range. A nil or unusable
// stored range always concludes that calibration is needed.
func NewCheck(d device.Device, last *sensor.Range, cfg CheckConfig) *Check {
	c := &Check{cfg: cfg, last: last, current: sensor.ForCalibration(device.Channels(d))}
	if last == nil || last.Len() != c.current.Len() || last.Validate() != nil {
		c.stage = CheckCalibrationNeeded
	}
	return c
}

// Stage returns the current conclusion.
func (c *Check) Stage() CheckStage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// ReachedConclusion reports whether the check decided either way.
func (c *Check) ReachedConclusion() bool {
	s := c.Stage()
	return s == CheckDone || s == CheckCalibrationNeeded
}

// Update feeds one frame and returns the resulting stage.
//
// Algorithm:
// 1. Widen the range observed so far
// 2. Readings far outside the stored range for OutOfBoundsTime: calibration needed
// 3. Observed spans matching the stored spans for PerfectThresholdTime: done
// 4. Moved the minimum but not matching within MinMoveTime: calibration needed
func (c *Check) Update(frame device.Frame) (CheckStage, error) {
	if err := frame.Validate(); err != nil {
		return c.Stage(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != CheckMoveFingers {
		return c.stage, nil
	}
	if err := c.current.ExpandToInclude(frame.Values); err != nil {
		return c.stage, err
	}

	var dt time.Duration
	if !c.lastTime.IsZero() {
		dt = frame.Time.Sub(c.lastTime)
	}
	c.lastTime = frame.Time

	if c.outside(frame.Values) {
		c.outOfBounds += dt
		if c.outOfBounds >= c.cfg.OutOfBoundsTime {
			c.stage = CheckCalibrationNeeded
			return c.stage, nil
		}
	} else {
		c.outOfBounds = 0
	}

	coverage := c.coverage()
	if floats.Min(coverage) >= 1-c.cfg.Tolerance {
		c.atThreshold += dt
		if c.atThreshold >= c.cfg.PerfectThresholdTime {
			c.stage = CheckDone
			return c.stage, nil
		}
	} else {
		c.atThreshold = 0
	}

	if !c.movedMinimum && floats.Min(coverage) >= c.cfg.MinMove {
		c.movedMinimum = true
	}
	if c.movedMinimum {
		c.sinceMinMove += dt
		if c.sinceMinMove >= c.cfg.MinMoveTime {
			c.stage = CheckCalibrationNeeded
		}
	}
	return c.stage, nil
}

// outside reports whether any value exceeds the stored bounds by more than
// the tolerated fraction of their span.
func (c *Check) outside(values []float32) bool {
	for i, v := range values {
		ch := c.last.Channels[i]
		margin := float32(c.cfg.Tolerance) * ch.Span()
		if v < ch.Min-margin || v > ch.Max+margin {
			return true
		}
	}
	return false
}

// coverage returns, per channel, the observed span over the stored span.
func (c *Check) coverage() []float64 {
	out := make([]float64, c.current.Len())
	for i, ch := range c.current.Channels {
		if span := ch.Span(); span > 0 {
			out[i] = float64(span / c.last.Channels[i].Span())
		}
	}
	return out
}

// BeginCalibration records that a new calibration started.
func (c *Check) BeginCalibration() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != CheckCalibrationNeeded {
		return fmt.Errorf("begin calibration in %s: %w", c.stage, ErrInvalidTransition)
	}
	c.stage = CheckCalibrating
	return nil
}

// Finish records that the new calibration completed.
func (c *Check) Finish() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != CheckCalibrating {
		return fmt.Errorf("finish in %s: %w", c.stage, ErrInvalidTransition)
	}
	c.stage = CheckDone
	return nil
}

// Reset restarts the check against the same stored range.
func (c *Check) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.ForCalibration()
	c.stage = CheckMoveFingers
	if c.last == nil || c.last.Len() != c.current.Len() || c.last.Validate() != nil {
		c.stage = CheckCalibrationNeeded
	}
	c.lastTime = time.Time{}
	c.atThreshold, c.sinceMinMove, c.outOfBounds = 0, 0, 0
	c.movedMinimum = false
}
