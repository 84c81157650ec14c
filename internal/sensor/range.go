// Package sensor holds the per-channel raw value ranges of a glove and maps
// raw readings into normalized values.
package sensor

import (
	"fmt"
	"math"
	"strings"

	"github.com/ayusman/glovecore/internal/codec"
	"github.com/ayusman/glovecore/internal/hand"
)

// Neutral is returned by Normalize for channels without a usable range.
const Neutral = 0.5

// degenerateSpan is the width below which min and max are treated as equal.
const degenerateSpan = 1e-6

// Channel is the observed raw range of a single sensor.
type Channel struct {
	Min          float32 `json:"min"`
	Max          float32 `json:"max"`
	Uncalibrated bool    `json:"uncalibrated,omitempty"`
}

// Span returns Max-Min.
func (c Channel) Span() float32 {
	return c.Max - c.Min
}

// Usable reports whether the channel can normalize values.
func (c Channel) Usable() bool {
	if c.Uncalibrated {
		return false
	}
	if isInf(c.Min) || isInf(c.Max) || math.IsNaN(float64(c.Min)) || math.IsNaN(float64(c.Max)) {
		return false
	}
	return c.Span() > degenerateSpan
}

// Range is an ordered set of channel ranges for one device.
type Range struct {
	Channels []Channel `json:"channels"`
}

// New returns a range of n channels mapping [0,1] onto [0,1].
func New(n int) *Range {
	r := &Range{Channels: make([]Channel, n)}
	for i := range r.Channels {
		r.Channels[i] = Channel{Min: 0, Max: 1}
	}
	return r
}

// FromBounds builds a range from separate min and max arrays.
func FromBounds(lo, hi []float32) (*Range, error) {
	if len(lo) != len(hi) {
		return nil, fmt.Errorf("sensor range bounds have %d min and %d max values: %w",
			len(lo), len(hi), hand.ErrInvalidArgument)
	}
	r := &Range{Channels: make([]Channel, len(lo))}
	for i := range lo {
		r.Channels[i] = Channel{Min: lo[i], Max: hi[i]}
	}
	return r, nil
}

// ForCalibration returns an empty range of n channels seeded with (+Inf, -Inf)
// so that the first ExpandToInclude adopts the observed values.
func ForCalibration(n int) *Range {
	r := &Range{Channels: make([]Channel, n)}
	inf := float32(math.Inf(1))
	for i := range r.Channels {
		r.Channels[i] = Channel{Min: inf, Max: -inf}
	}
	return r
}

// ForCalibration returns an empty calibration range with the same channel count.
func (r *Range) ForCalibration() *Range {
	return ForCalibration(r.Len())
}

// Len returns the number of channels.
func (r *Range) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Channels)
}

// Clone returns a deep copy.
func (r *Range) Clone() *Range {
	if r == nil {
		return nil
	}
	c := &Range{Channels: make([]Channel, len(r.Channels))}
	copy(c.Channels, r.Channels)
	return c
}

// Normalize maps raw into [0,1] for channel i. Channels that are out of
// bounds, degenerate or flagged uncalibrated yield Neutral, as do NaN readings.
func (r *Range) Normalize(i int, raw float32) float32 {
	if i < 0 || i >= r.Len() || math.IsNaN(float64(raw)) {
		return Neutral
	}
	c := r.Channels[i]
	if !c.Usable() {
		return Neutral
	}
	return hand.Clamp01((raw - c.Min) / c.Span())
}

// NormalizeSigned maps raw into [-1,1] for bidirectional channels such as
// abduction. The midpoint of the range maps to 0.
func (r *Range) NormalizeSigned(i int, raw float32) float32 {
	return r.Normalize(i, raw)*2 - 1
}

// NormalizeFrame normalizes every channel of raw.
func (r *Range) NormalizeFrame(raw []float32) ([]float32, error) {
	if len(raw) != r.Len() {
		return nil, fmt.Errorf("frame has %d values, range has %d channels: %w",
			len(raw), r.Len(), hand.ErrInvalidArgument)
	}
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = r.Normalize(i, v)
	}
	return out, nil
}

// SetMinValues replaces every channel minimum.
func (r *Range) SetMinValues(values []float32) error {
	if len(values) != r.Len() {
		return fmt.Errorf("got %d min values for %d channels: %w", len(values), r.Len(), hand.ErrInvalidArgument)
	}
	for i, v := range values {
		r.Channels[i].Min = v
		r.Channels[i].Uncalibrated = false
	}
	return nil
}

// SetMaxValues replaces every channel maximum.
func (r *Range) SetMaxValues(values []float32) error {
	if len(values) != r.Len() {
		return fmt.Errorf("got %d max values for %d channels: %w", len(values), r.Len(), hand.ErrInvalidArgument)
	}
	for i, v := range values {
		r.Channels[i].Max = v
		r.Channels[i].Uncalibrated = false
	}
	return nil
}

// MinValues returns a copy of the channel minimums.
func (r *Range) MinValues() []float32 {
	out := make([]float32, r.Len())
	for i, c := range r.Channels {
		out[i] = c.Min
	}
	return out
}

// MaxValues returns a copy of the channel maximums.
func (r *Range) MaxValues() []float32 {
	out := make([]float32, r.Len())
	for i, c := range r.Channels {
		out[i] = c.Max
	}
	return out
}

// ExpandToInclude widens every channel so that it contains raw. Ranges never
// shrink. NaN readings are ignored.
func (r *Range) ExpandToInclude(raw []float32) error {
	if len(raw) != r.Len() {
		return fmt.Errorf("frame has %d values, range has %d channels: %w",
			len(raw), r.Len(), hand.ErrInvalidArgument)
	}
	for i, v := range raw {
		if math.IsNaN(float64(v)) {
			continue
		}
		c := &r.Channels[i]
		if v < c.Min {
			c.Min = v
		}
		if v > c.Max {
			c.Max = v
		}
	}
	return nil
}

// Merge widens every channel to also cover the finite bounds of o.
func (r *Range) Merge(o *Range) error {
	if o.Len() != r.Len() {
		return fmt.Errorf("merging %d channels into %d: %w", o.Len(), r.Len(), hand.ErrInvalidArgument)
	}
	for i, c := range o.Channels {
		d := &r.Channels[i]
		if !isInf(c.Min) && c.Min < d.Min {
			d.Min = c.Min
		}
		if !isInf(c.Max) && c.Max > d.Max {
			d.Max = c.Max
		}
	}
	return nil
}

// ExpandBeyond widens channels only where raw falls outside the current
// bounds by more than margin. It returns the number of channels changed.
func (r *Range) ExpandBeyond(raw []float32, margin float32) (int, error) {
	if len(raw) != r.Len() {
		return 0, fmt.Errorf("frame has %d values, range has %d channels: %w",
			len(raw), r.Len(), hand.ErrInvalidArgument)
	}
	changed := 0
	for i, v := range raw {
		if math.IsNaN(float64(v)) {
			continue
		}
		c := &r.Channels[i]
		grew := false
		if v < c.Min-margin {
			c.Min = v
			grew = true
		}
		if v > c.Max+margin {
			c.Max = v
			grew = true
		}
		if grew {
			changed++
		}
	}
	return changed, nil
}

// Seal returns a copy in which every channel whose span is below noiseFloor,
// or that never saw a value, is flagged Uncalibrated.
func (r *Range) Seal(noiseFloor float32) *Range {
	s := r.Clone()
	for i := range s.Channels {
		c := &s.Channels[i]
		if isInf(c.Min) || isInf(c.Max) || c.Span() < noiseFloor || c.Span() <= degenerateSpan {
			c.Uncalibrated = true
		}
	}
	return s
}

// Validate returns ErrUncalibrated naming the unusable channels.
func (r *Range) Validate() error {
	var bad []string
	for i, c := range r.Channels {
		if !c.Usable() {
			bad = append(bad, fmt.Sprint(i))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("channels %s: %w", strings.Join(bad, ","), hand.ErrUncalibrated)
	}
	return nil
}

// Equals compares two ranges within tol.
func (r *Range) Equals(o *Range, tol float32) bool {
	if r.Len() != o.Len() {
		return false
	}
	for i, c := range r.Channels {
		d := o.Channels[i]
		if c.Uncalibrated != d.Uncalibrated || !near(c.Min, d.Min, tol) || !near(c.Max, d.Max, tol) {
			return false
		}
	}
	return true
}

// Serialize renders the range as [[min...],[max...],[flags...]].
func (r *Range) Serialize() string {
	flags := make([]bool, r.Len())
	for i, c := range r.Channels {
		flags[i] = c.Uncalibrated
	}
	return codec.Join(codec.FormatFloats(r.MinValues()), codec.FormatFloats(r.MaxValues()), codec.FormatBools(flags))
}

// Deserialize parses a record produced by Serialize.
func Deserialize(record string) (*Range, error) {
	blocks, err := codec.Expect(record, 3)
	if err != nil {
		return nil, fmt.Errorf("sensor range: %w", err)
	}
	lo, err := codec.ParseFloats(blocks[0])
	if err != nil {
		return nil, fmt.Errorf("sensor range min: %w", err)
	}
	hi, err := codec.ParseFloats(blocks[1])
	if err != nil {
		return nil, fmt.Errorf("sensor range max: %w", err)
	}
	flags, err := codec.ParseBools(blocks[2])
	if err != nil {
		return nil, fmt.Errorf("sensor range flags: %w", err)
	}
	r, err := FromBounds(lo, hi)
	if err != nil {
		return nil, err
	}
	if len(flags) != len(lo) {
		return nil, fmt.Errorf("sensor range has %d flags for %d channels: %w", len(flags), len(lo), codec.ErrMalformed)
	}
	for i, f := range flags {
		r.Channels[i].Uncalibrated = f
	}
	return r, nil
}

func isInf(f float32) bool {
	return math.IsInf(float64(f), 0)
}

func near(a, b, tol float32) bool {
	if a == b {
		return true
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}
