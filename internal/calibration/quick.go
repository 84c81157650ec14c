package calibration

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/handmodel"
	"github.com/ayusman/glovecore/internal/interp"
	"github.com/ayusman/glovecore/internal/pose"
	"github.com/ayusman/glovecore/internal/sensor"
)

// Quick is a stage-less calibration that runs alongside normal use. It
// widens channel ranges whenever a reading leaves them by more than the
// debounce margin and never narrows them.
type Quick struct {
	cfg Config
	dev device.Device

	rng     *sensor.Range
	points  []DataPoint
	first   time.Time
	latest  device.Frame
	widened int
	ended   bool

	mu sync.Mutex
}

// NewQuick starts a quick calibration. A nil seed starts from an empty range;
// otherwise the seed's bounds are only ever widened.
func NewQuick(d device.Device, seed *sensor.Range, cfg Config) (*Quick, error) {
	if d == nil {
		return nil, fmt.Errorf("quick calibration without device: %w", hand.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("calibration config: %v: %w", err, hand.ErrInvalidArgument)
	}
	n := device.Channels(d)
	rng := sensor.ForCalibration(n)
	if seed != nil {
		if seed.Len() != n {
			return nil, fmt.Errorf("seed range has %d channels, %s has %d: %w", seed.Len(), device.Name(d), n, hand.ErrInvalidArgument)
		}
		_ = rng.Merge(seed)
	}
	return &Quick{cfg: cfg, dev: d, rng: rng}, nil
}

// Feed widens the range with one frame and returns how many channels grew.
// Frames arriving after the sequence ended are ignored.
func (q *Quick) Feed(frame device.Frame) (int, error) {
	if err := checkFrame(q.dev, frame); err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ended {
		return 0, nil
	}
	if q.first.IsZero() {
		q.first = frame.Time
	}
	if q.cfg.AutoEndAfter > 0 && frame.Time.Sub(q.first) >= q.cfg.AutoEndAfter {
		q.ended = true
		return 0, nil
	}

	changed, err := q.rng.ExpandBeyond(frame.Values, q.cfg.DebounceMargin)
	if err != nil {
		return 0, err
	}
	q.widened += changed
	q.latest = frame.Clone()
	q.points = appendBounded(q.points, newDataPoint(-1, "quick", frame.Time, frame.Values, nil), q.cfg.MaxDataPoints)
	return changed, nil
}

// Completed reports whether the sequence ended, by End or AutoEndAfter.
func (q *Quick) Completed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ended
}

// End stops collecting.
func (q *Quick) End() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ended = true
}

// Reset discards everything collected and starts over.
func (q *Quick) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rng = q.rng.ForCalibration()
	q.points = nil
	q.first = time.Time{}
	q.latest = device.Frame{}
	q.widened = 0
	q.ended = false
}

// Range returns the current range, sealed against the noise floor.
func (q *Quick) Range() *sensor.Range {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rng.Seal(q.cfg.NoiseFloor)
}

// Widened returns how many channel expansions happened so far.
func (q *Quick) Widened() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.widened
}

// DataPoints returns a copy of the buffered data points.
func (q *Quick) DataPoints() []DataPoint {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DataPoint(nil), q.points...)
}

// CompileRange builds a range from the buffered points, smoothed with a
// weighted moving average, and seals it.
func (q *Quick) CompileRange() (*sensor.Range, error) {
	q.mu.Lock()
	points := append([]DataPoint(nil), q.points...)
	q.mu.Unlock()

	r, err := SmoothedRange(points, device.Channels(q.dev), q.cfg.SmoothingSamples)
	if err != nil {
		return nil, err
	}
	return r.Seal(q.cfg.NoiseFloor), nil
}

// Instruction returns what the wearer should do right now.
func (q *Quick) Instruction() string {
	if q.Completed() {
		return "Calibration complete."
	}
	return "Open and close your hand a few times, then spread your fingers."
}

// PreviewPose assembles the latest frame with the range collected so far.
func (q *Quick) PreviewPose(set *interp.Set, model *handmodel.Model) (pose.HandPose, error) {
	q.mu.Lock()
	latest := q.latest
	rng := q.rng.Clone()
	q.mu.Unlock()
	return pose.Assembler{}.Assemble(latest, rng, set, model)
}
