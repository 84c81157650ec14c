package glove

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/geom"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/sensor"
)

// SimConfig configures a simulated glove.
type SimConfig struct {
	// Rate is the number of frames per second.
	Rate float64 `yaml:"rate"`
	// Period is the duration of one open-close cycle of the hand.
	Period time.Duration `yaml:"period"`
	// Coverage is the share of the device's default raw range the fingers sweep.
	Coverage float64 `yaml:"coverage"`
}

// DefaultSimConfig returns a glove at 60 Hz closing the hand every two seconds.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Rate:     60,
		Period:   2 * time.Second,
		Coverage: 0.8,
	}
}

// Simulated is a Source producing smooth, repeating open and close motions
// within the device's default raw range, plus a slowly rocking wrist.
type Simulated struct {
	dev    device.Device
	cfg    SimConfig
	rng    *sensor.Range
	phases []float64
	start  time.Time
	ticker *time.Ticker
	done   chan struct{}
}

// Validate rejects a glove that would never tick or would leave its range.
func (c SimConfig) Validate() error {
	if c.Rate <= 0 || c.Period <= 0 || c.Coverage <= 0 || c.Coverage > 1 {
		return fmt.Errorf("simulated glove: rate %v, period %v, coverage %v: %w", c.Rate, c.Period, c.Coverage, hand.ErrInvalidArgument)
	}
	return nil
}

// NewSimulated creates a simulated glove. Its motion starts immediately.
func NewSimulated(d device.Device, cfg SimConfig) (*Simulated, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulated{
		dev:    d,
		cfg:    cfg,
		rng:    device.DefaultRange(d),
		phases: make([]float64, device.Channels(d)),
		start:  time.Now(),
		ticker: time.NewTicker(time.Duration(float64(time.Second) / cfg.Rate)),
		done:   make(chan struct{}),
	}
	// Fingers lag each other slightly, abduction runs a quarter cycle late.
	for _, b := range device.Bindings(d) {
		if b.Channel >= len(s.phases) {
			continue
		}
		phase := float64(b.Finger) * 0.15
		if _, axis := b.Movements[0].Target(); axis == hand.AxisAbduction {
			phase += math.Pi / 2
		}
		s.phases[b.Channel] = phase
	}
	return s, nil
}

func (s *Simulated) Device() device.Device {
	return s.dev
}

// Sample returns the frame the glove produces at offset t of its run.
func (s *Simulated) Sample(t time.Duration) device.Frame {
	cycle := 2 * math.Pi * t.Seconds() / s.cfg.Period.Seconds()
	values := make([]float32, len(s.phases))
	for ch := range values {
		c := s.rng.Channels[ch]
		mid := float64(c.Min+c.Max) / 2
		half := float64(c.Span()) / 2 * s.cfg.Coverage
		values[ch] = float32(mid - half*math.Cos(cycle+s.phases[ch]))
	}
	wrist := geom.V(
		float32(20*math.Sin(cycle/4)),
		float32(15*math.Cos(cycle/5)),
		0,
	)
	return device.Frame{
		Device:      s.dev,
		Values:      values,
		Orientation: geom.FromEulerDegrees(wrist),
		Time:        s.start.Add(t),
	}
}

// Next waits for the next tick and samples the motion at the current time.
func (s *Simulated) Next(ctx context.Context) (device.Frame, error) {
	select {
	case <-s.done:
		return device.Frame{}, ErrClosed
	default:
	}
	select {
	case <-ctx.Done():
		return device.Frame{}, ctx.Err()
	case <-s.done:
		return device.Frame{}, ErrClosed
	case <-s.ticker.C:
		return s.Sample(time.Since(s.start)), nil
	}
}

// Close stops the glove. Next returns ErrClosed afterwards.
func (s *Simulated) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
		s.ticker.Stop()
	}
	return nil
}
