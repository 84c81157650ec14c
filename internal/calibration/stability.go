package calibration

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// StabilityDetector decides whether the wearer is holding a pose still, by
// comparing the per-channel variance of the last samples with a threshold.
type StabilityDetector struct {
	window      int
	threshold   float64
	minDuration time.Duration

	history     [][]float64 // per channel, oldest first
	stableSince time.Time
	mu          sync.Mutex
}

// NewStabilityDetector creates a detector over the given number of samples.
func NewStabilityDetector(window int, threshold float64, minDuration time.Duration) *StabilityDetector {
	if window < 2 {
		window = 2
	}
	return &StabilityDetector{
		window:      window,
		threshold:   threshold,
		minDuration: minDuration,
	}
}

// Add records one frame of raw values captured at the given time. at must be
// the frame's capture time; a zero time never accumulates a stable period.
// Returns whether the pose has been held for the minimum duration and the
// largest channel variance over the window.
//
// Algorithm:
// 1. Append the values to each channel's history, keeping the last window
// 2. Until the window is full the pose is never held
// 3. Compute the variance of every channel and keep the largest
// 4. Below the threshold, start or continue the stable period
// 5. Otherwise restart it
func (d *StabilityDetector) Add(values []float32, at time.Time) (bool, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.history) != len(values) {
		d.history = make([][]float64, len(values))
		d.stableSince = time.Time{}
	}
	for i, v := range values {
		h := append(d.history[i], float64(v))
		if len(h) > d.window {
			h = h[len(h)-d.window:]
		}
		d.history[i] = h
	}

	if len(values) == 0 || len(d.history[0]) < d.window {
		return false, 0
	}

	var worst float64
	for _, h := range d.history {
		if v := stat.Variance(h, nil); v > worst {
			worst = v
		}
	}

	if worst >= d.threshold {
		d.stableSince = time.Time{}
		return false, worst
	}
	if d.stableSince.IsZero() {
		d.stableSince = at
	}
	return at.Sub(d.stableSince) >= d.minDuration, worst
}

// Reset clears the history so the next pose starts from scratch.
func (d *StabilityDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.history = nil
	d.stableSince = time.Time{}
}
