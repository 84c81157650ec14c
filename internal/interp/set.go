// Package interp converts normalized sensor values into joint angles using
// per-finger, per-movement calibrated curves.
package interp

import (
	"fmt"

	"github.com/ayusman/glovecore/internal/codec"
	"github.com/ayusman/glovecore/internal/hand"
)

const numOtherFingers = hand.NumFingers - 1

// Set holds one curve per movement of every finger. The thumb and the other
// four fingers use separate movement domains. A Set is never modified after
// construction; the editing methods return a new Set.
type Set struct {
	thumb   [hand.NumThumbMovements]Curve
	fingers [numOtherFingers][hand.NumFingerMovements]Curve
}

// Default returns anthropometric default curves for one hand. Twist and
// abduction change sign on the left hand.
func Default(side hand.Side) *Set {
	s := &Set{}

	thumbFull := hand.FullFlexion(hand.Thumb)
	s.thumb[hand.ThumbCmcTwist] = Linear(0, 40)
	s.thumb[hand.ThumbCmcFlexion] = Linear(0, thumbFull[0])
	s.thumb[hand.ThumbCmcAbduction] = Linear(0, -45)
	s.thumb[hand.ThumbMcpFlexion] = Linear(0, thumbFull[1])
	s.thumb[hand.ThumbIpFlexion] = Linear(0, thumbFull[2])

	for f := hand.Index; f <= hand.Pinky; f++ {
		full := hand.FullFlexion(f)
		c := &s.fingers[f-1]
		c[hand.FingerMcpFlexion] = Linear(0, full[0])
		c[hand.FingerMcpAbduction] = Linear(-15, 15)
		c[hand.FingerPipFlexion] = Linear(0, full[1])
		c[hand.FingerDipFlexion] = Linear(0, full[2])
	}

	if !side.IsRight() {
		s.thumb[hand.ThumbCmcTwist] = s.thumb[hand.ThumbCmcTwist].Mirror()
		s.thumb[hand.ThumbCmcAbduction] = s.thumb[hand.ThumbCmcAbduction].Mirror()
		for i := range s.fingers {
			s.fingers[i][hand.FingerMcpAbduction] = s.fingers[i][hand.FingerMcpAbduction].Mirror()
		}
	}
	return s
}

// Uniform returns a Set that uses the same curve for every movement.
func Uniform(c Curve) (*Set, error) {
	c, err := NewCurve(c...)
	if err != nil {
		return nil, err
	}
	s := &Set{}
	for i := range s.thumb {
		s.thumb[i] = c
	}
	for f := range s.fingers {
		for m := range s.fingers[f] {
			s.fingers[f][m] = c
		}
	}
	return s, nil
}

func (s *Set) slot(f hand.Finger, m hand.Movement) (*Curve, error) {
	if err := hand.CheckMovement(f, m); err != nil {
		return nil, err
	}
	if f == hand.Thumb {
		return &s.thumb[m.Ordinal()], nil
	}
	return &s.fingers[f-1][m.Ordinal()], nil
}

// Curve returns a copy of the curve for a movement.
func (s *Set) Curve(f hand.Finger, m hand.Movement) (Curve, error) {
	c, err := s.slot(f, m)
	if err != nil {
		return nil, err
	}
	return append(Curve(nil), (*c)...), nil
}

// GetAngle converts a normalized sensor value into the movement's joint
// angle in degrees. Values outside the calibrated anchors are extrapolated.
func (s *Set) GetAngle(f hand.Finger, m hand.Movement, input float32) (float32, error) {
	c, err := s.slot(f, m)
	if err != nil {
		return 0, err
	}
	return c.Eval(input), nil
}

func (s *Set) clone() *Set {
	n := &Set{}
	for i, c := range s.thumb {
		n.thumb[i] = append(Curve(nil), c...)
	}
	for f := range s.fingers {
		for m, c := range s.fingers[f] {
			n.fingers[f][m] = append(Curve(nil), c...)
		}
	}
	return n
}

// SetInterpolation returns a new Set in which the given anchors overwrite or
// join the existing anchors of the movement.
func (s *Set) SetInterpolation(f hand.Finger, m hand.Movement, anchors ...Anchor) (*Set, error) {
	n := s.clone()
	slot, err := n.slot(f, m)
	if err != nil {
		return nil, err
	}
	c := *slot
	for _, a := range anchors {
		c = c.with(a)
	}
	if len(c) < 2 {
		return nil, fmt.Errorf("%s %s would keep %d anchors: %w", f, m, len(c), hand.ErrInvalidArgument)
	}
	*slot = c
	return n, nil
}

// ReplaceCurve returns a new Set with the movement's anchors replaced.
func (s *Set) ReplaceCurve(f hand.Finger, m hand.Movement, anchors ...Anchor) (*Set, error) {
	c, err := NewCurve(anchors...)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", f, m, err)
	}
	n := s.clone()
	slot, err := n.slot(f, m)
	if err != nil {
		return nil, err
	}
	*slot = c
	return n, nil
}

// RemoveAnchor returns a new Set without the anchor at input. Removing an
// anchor that would leave fewer than two fails.
func (s *Set) RemoveAnchor(f hand.Finger, m hand.Movement, input float32) (*Set, error) {
	n := s.clone()
	slot, err := n.slot(f, m)
	if err != nil {
		return nil, err
	}
	kept := make(Curve, 0, len(*slot))
	for _, a := range *slot {
		if a.Input != input {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(*slot) {
		return nil, fmt.Errorf("%s %s has no anchor at %v: %w", f, m, input, hand.ErrInvalidArgument)
	}
	if len(kept) < 2 {
		return nil, fmt.Errorf("%s %s would keep %d anchors: %w", f, m, len(kept), hand.ErrInvalidArgument)
	}
	*slot = kept
	return n, nil
}

// Equals compares two sets within tol.
func (s *Set) Equals(o *Set, tol float32) bool {
	for i := range s.thumb {
		if !s.thumb[i].equals(o.thumb[i], tol) {
			return false
		}
	}
	for f := range s.fingers {
		for m := range s.fingers[f] {
			if !s.fingers[f][m].equals(o.fingers[f][m], tol) {
				return false
			}
		}
	}
	return true
}

// Serialize renders the set as one record per finger, thumb first, each
// holding one curve per movement.
func (s *Set) Serialize() string {
	parts := make([]string, 0, hand.NumFingers)
	parts = append(parts, codec.FormatList(s.thumb[:], formatCurve))
	for f := range s.fingers {
		parts = append(parts, codec.FormatList(s.fingers[f][:], formatCurve))
	}
	return codec.Join(parts...)
}

// Deserialize parses a record produced by Serialize.
func Deserialize(record string) (*Set, error) {
	blocks, err := codec.Expect(record, hand.NumFingers)
	if err != nil {
		return nil, fmt.Errorf("interpolation set: %w", err)
	}
	s := &Set{}

	thumb, err := codec.ParseList(blocks[0], parseCurve)
	if err != nil {
		return nil, fmt.Errorf("interpolation set thumb: %w", err)
	}
	if len(thumb) != hand.NumThumbMovements {
		return nil, fmt.Errorf("%w: thumb has %d curves", codec.ErrMalformed, len(thumb))
	}
	copy(s.thumb[:], thumb)

	for f := range s.fingers {
		curves, err := codec.ParseList(blocks[f+1], parseCurve)
		if err != nil {
			return nil, fmt.Errorf("interpolation set %s: %w", hand.Finger(f+1), err)
		}
		if len(curves) != hand.NumFingerMovements {
			return nil, fmt.Errorf("%w: %s has %d curves", codec.ErrMalformed, hand.Finger(f+1), len(curves))
		}
		copy(s.fingers[f][:], curves)
	}
	return s, nil
}
