package interp

import (
	"fmt"
	"sort"

	"github.com/ayusman/glovecore/internal/codec"
	"github.com/ayusman/glovecore/internal/hand"
)

// Anchor is a calibrated pair of normalized input and joint angle in degrees.
type Anchor struct {
	Input float32 `json:"input"`
	Angle float32 `json:"angle"`
}

// Curve is a piecewise linear mapping through anchors sorted by Input.
type Curve []Anchor

// NewCurve sorts anchors by input. Anchors sharing an input keep the last one
// given. At least two distinct inputs are required to define a slope.
func NewCurve(anchors ...Anchor) (Curve, error) {
	c := make(Curve, 0, len(anchors))
	for _, a := range anchors {
		c = c.with(a)
	}
	if len(c) < 2 {
		return nil, fmt.Errorf("curve needs at least 2 anchors, got %d: %w", len(c), hand.ErrInvalidArgument)
	}
	return c, nil
}

// Linear returns the two anchor curve through (0,from) and (1,to).
func Linear(from, to float32) Curve {
	return Curve{{Input: 0, Angle: from}, {Input: 1, Angle: to}}
}

// with returns a copy of c containing a, replacing any anchor with the same input.
func (c Curve) with(a Anchor) Curve {
	out := make(Curve, 0, len(c)+1)
	for _, e := range c {
		if e.Input != a.Input {
			out = append(out, e)
		}
	}
	out = append(out, a)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Input < out[j].Input })
	return out
}

// Eval returns the angle for input. Inputs outside the anchors are
// extrapolated along the nearest segment.
func (c Curve) Eval(input float32) float32 {
	switch len(c) {
	case 0:
		return 0
	case 1:
		return c[0].Angle
	}

	// Index of the first anchor whose input exceeds the value, bounded to a
	// valid segment end.
	i := sort.Search(len(c), func(i int) bool { return c[i].Input > input })
	if i < 1 {
		i = 1
	}
	if i > len(c)-1 {
		i = len(c) - 1
	}
	a0, a1 := c[i-1], c[i]
	return a0.Angle + (a1.Angle-a0.Angle)*(input-a0.Input)/(a1.Input-a0.Input)
}

// Mirror negates every angle.
func (c Curve) Mirror() Curve {
	out := make(Curve, len(c))
	for i, a := range c {
		out[i] = Anchor{Input: a.Input, Angle: -a.Angle}
	}
	return out
}

func (c Curve) equals(o Curve, tol float32) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if absf(c[i].Input-o[i].Input) > tol || absf(c[i].Angle-o[i].Angle) > tol {
			return false
		}
	}
	return true
}

func formatCurve(c Curve) string {
	return codec.FormatList(c, func(a Anchor) string {
		return codec.Join(codec.FormatFloat(a.Input), codec.FormatFloat(a.Angle))
	})
}

func parseCurve(record string) (Curve, error) {
	anchors, err := codec.ParseList(record, func(s string) (Anchor, error) {
		f, err := codec.ParseFloats(s)
		if err != nil {
			return Anchor{}, err
		}
		if len(f) != 2 {
			return Anchor{}, fmt.Errorf("%w: anchor needs 2 values, got %d", codec.ErrMalformed, len(f))
		}
		return Anchor{Input: f[0], Angle: f[1]}, nil
	})
	if err != nil {
		return nil, err
	}
	return NewCurve(anchors...)
}

func absf(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
