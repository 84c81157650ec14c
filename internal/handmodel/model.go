// Package handmodel describes the static skeleton of a hand: where each finger
// starts relative to the wrist, how it is oriented at rest and how long its
// bones are.
package handmodel

import (
	"fmt"

	"github.com/ayusman/glovecore/internal/codec"
	"github.com/ayusman/glovecore/internal/geom"
	"github.com/ayusman/glovecore/internal/hand"
)

// Finger is the rest geometry of one finger chain.
type Finger struct {
	// StartPosition is the first joint relative to the wrist, in mm.
	StartPosition geom.Vect3D `json:"startPosition"`
	// StartRotation orients the chain at rest. Bones run along local +X.
	StartRotation geom.Quat `json:"startRotation"`
	// Lengths are the bone lengths between consecutive joints and the tip, in mm.
	Lengths [hand.JointsPerFinger]float32 `json:"lengths"`
	// FullFlexion holds the per-joint flexion angles of a fully bent finger.
	FullFlexion [hand.JointsPerFinger]float32 `json:"fullFlexion"`
}

// FlexionReference is the summed full flexion of the finger in degrees.
func (f Finger) FlexionReference() float32 {
	var sum float32
	for _, a := range f.FullFlexion {
		sum += a
	}
	return sum
}

// Model is an immutable hand skeleton for one side.
type Model struct {
	Side    hand.Side               `json:"side"`
	Fingers [hand.NumFingers]Finger `json:"fingers"`
}

// Average adult right hand, wrist at the origin, +X toward the fingertips,
// +Y toward the thumb, +Z dorsal.
var rightDefaults = [hand.NumFingers]struct {
	pos     geom.Vect3D
	euler   geom.Vect3D
	lengths [hand.JointsPerFinger]float32
}{
	{geom.V(25, 20, -12), geom.V(-30, 15, 40), [3]float32{46, 32, 28}},
	{geom.V(90, 24, 0), geom.V(0, 0, 5), [3]float32{45, 25, 22}},
	{geom.V(92, 4, 0), geom.V(0, 0, 0), [3]float32{48, 29, 24}},
	{geom.V(87, -14, -2), geom.V(0, 0, -5), [3]float32{44, 28, 24}},
	{geom.V(79, -30, -5), geom.V(0, 0, -10), [3]float32{35, 20, 20}},
}

// Default returns the anthropometric default model for a side. The left model
// is the right model mirrored across the XZ plane.
func Default(side hand.Side) *Model {
	m := &Model{Side: hand.Right}
	for i, d := range rightDefaults {
		m.Fingers[i] = Finger{
			StartPosition: d.pos,
			StartRotation: geom.FromEulerDegrees(d.euler),
			Lengths:       d.lengths,
			FullFlexion:   hand.FullFlexion(hand.Finger(i)),
		}
	}
	if !side.IsRight() {
		return m.Mirror()
	}
	return m
}

// Mirror returns the same skeleton for the opposite side.
func (m *Model) Mirror() *Model {
	out := &Model{Side: hand.Left}
	if !m.Side.IsRight() {
		out.Side = hand.Right
	}
	for i, f := range m.Fingers {
		f.StartPosition = geom.V(f.StartPosition.X, -f.StartPosition.Y, f.StartPosition.Z)
		f.StartRotation = f.StartRotation.Mirror()
		out.Fingers[i] = f
	}
	return out
}

// Finger returns the geometry of one finger.
func (m *Model) Finger(f hand.Finger) (Finger, error) {
	if !f.Valid() {
		return Finger{}, fmt.Errorf("finger %d: %w", f, hand.ErrInvalidArgument)
	}
	return m.Fingers[f], nil
}

// WithBoneLengths returns a user variant with the bone lengths of one finger
// replaced by measured values.
func (m *Model) WithBoneLengths(f hand.Finger, lengths [hand.JointsPerFinger]float32) (*Model, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("finger %d: %w", f, hand.ErrInvalidArgument)
	}
	for i, l := range lengths {
		if l <= 0 {
			return nil, fmt.Errorf("%s bone %d length %v: %w", f, i, l, hand.ErrInvalidArgument)
		}
	}
	out := *m
	out.Fingers[f].Lengths = lengths
	return &out, nil
}

// Scaled returns a user variant with every length and offset multiplied by factor.
func (m *Model) Scaled(factor float32) (*Model, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("scale factor %v: %w", factor, hand.ErrInvalidArgument)
	}
	out := *m
	for i := range out.Fingers {
		f := &out.Fingers[i]
		f.StartPosition = f.StartPosition.Scale(factor)
		for j := range f.Lengths {
			f.Lengths[j] *= factor
		}
	}
	return &out, nil
}

// Equals compares two models within tol.
func (m *Model) Equals(o *Model, tol float32) bool {
	if m.Side != o.Side {
		return false
	}
	for i, f := range m.Fingers {
		g := o.Fingers[i]
		if !f.StartPosition.Equals(g.StartPosition, tol) || !f.StartRotation.Equals(g.StartRotation, tol) {
			return false
		}
		for j := range f.Lengths {
			if absf(f.Lengths[j]-g.Lengths[j]) > tol || absf(f.FullFlexion[j]-g.FullFlexion[j]) > tol {
				return false
			}
		}
	}
	return true
}

// Serialize renders the model as [side,[finger...]] where each finger is
// [position,rotation,[lengths],[fullFlexion]].
func (m *Model) Serialize() string {
	fingers := codec.FormatList(m.Fingers[:], func(f Finger) string {
		return codec.Join(
			codec.FormatVect(f.StartPosition),
			codec.FormatQuat(f.StartRotation),
			codec.FormatFloats(f.Lengths[:]),
			codec.FormatFloats(f.FullFlexion[:]),
		)
	})
	return codec.Join(m.Side.String(), fingers)
}

// Deserialize parses a record produced by Serialize.
func Deserialize(record string) (*Model, error) {
	blocks, err := codec.Expect(record, 2)
	if err != nil {
		return nil, fmt.Errorf("hand model: %w", err)
	}
	side, err := hand.ParseSide(blocks[0])
	if err != nil {
		return nil, fmt.Errorf("hand model: %w", err)
	}
	fingers, err := codec.ParseList(blocks[1], parseFinger)
	if err != nil {
		return nil, fmt.Errorf("hand model: %w", err)
	}
	if len(fingers) != hand.NumFingers {
		return nil, fmt.Errorf("%w: hand model has %d fingers", codec.ErrMalformed, len(fingers))
	}
	m := &Model{Side: side}
	copy(m.Fingers[:], fingers)
	return m, nil
}

func parseFinger(record string) (Finger, error) {
	var f Finger
	blocks, err := codec.Expect(record, 4)
	if err != nil {
		return f, err
	}
	if f.StartPosition, err = codec.ParseVect(blocks[0]); err != nil {
		return f, err
	}
	if f.StartRotation, err = codec.ParseQuat(blocks[1]); err != nil {
		return f, err
	}
	lengths, err := codec.ParseFloats(blocks[2])
	if err != nil {
		return f, err
	}
	flex, err := codec.ParseFloats(blocks[3])
	if err != nil {
		return f, err
	}
	if len(lengths) != hand.JointsPerFinger || len(flex) != hand.JointsPerFinger {
		return f, fmt.Errorf("%w: finger needs %d lengths and flexion angles", codec.ErrMalformed, hand.JointsPerFinger)
	}
	copy(f.Lengths[:], lengths)
	copy(f.FullFlexion[:], flex)
	return f, nil
}

func absf(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
