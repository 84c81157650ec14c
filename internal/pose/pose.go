// Package pose produces hand pose snapshots from glove data.
package pose

import (
	"fmt"
	"strings"

	"github.com/ayusman/glovecore/internal/codec"
	"github.com/ayusman/glovecore/internal/geom"
	"github.com/ayusman/glovecore/internal/hand"
)

// HandPose is an immutable snapshot of a posed hand. Positions and rotations
// are relative to the wrist; Orientation places the wrist in the world.
type HandPose struct {
	Side hand.Side `json:"side"`
	// Positions of the three joints and the tip of every finger, in mm.
	Positions [hand.NumFingers][hand.PositionsPerFinger]geom.Vect3D `json:"positions"`
	// Rotations of every joint and the tip, relative to the wrist.
	Rotations [hand.NumFingers][hand.PositionsPerFinger]geom.Quat `json:"rotations"`
	// Angles are the joint angles in degrees, relative to the parent joint.
	Angles hand.HandAngles `json:"angles"`
	// Flexion is the normalized flexion of every finger; 0 open, 1 fully bent.
	Flexion     [hand.NumFingers]float32 `json:"flexion"`
	Orientation geom.Quat                `json:"orientation"`
}

// GetNormalizedFlexion returns the flexion of one finger in [0,1].
func (p HandPose) GetNormalizedFlexion(f hand.Finger) float32 {
	if !f.Valid() {
		return 0
	}
	return p.Flexion[f]
}

// FingerTips returns the tip position of every finger.
func (p HandPose) FingerTips() [hand.NumFingers]geom.Vect3D {
	var tips [hand.NumFingers]geom.Vect3D
	for f := range p.Positions {
		tips[f] = p.Positions[f][hand.PositionsPerFinger-1]
	}
	return tips
}

// Landmarks flattens the pose into the 21 point hand landmark layout, with
// the wrist at the origin.
func (p HandPose) Landmarks() [hand.NumLandmarks]geom.Vect3D {
	var out [hand.NumLandmarks]geom.Vect3D
	out[hand.Wrist] = geom.Zero
	for _, f := range hand.Fingers {
		for i, pos := range p.Positions[f] {
			out[hand.LandmarkIndex(f, i)] = pos
		}
	}
	return out
}

// Equals compares two poses within tol.
func (p HandPose) Equals(o HandPose, tol float32) bool {
	if p.Side != o.Side || !p.Orientation.Equals(o.Orientation, tol) {
		return false
	}
	for f := range p.Positions {
		if absf(p.Flexion[f]-o.Flexion[f]) > tol {
			return false
		}
		for i := range p.Positions[f] {
			if !p.Positions[f][i].Equals(o.Positions[f][i], tol) || !p.Rotations[f][i].Equals(o.Rotations[f][i], tol) {
				return false
			}
		}
		for j := range p.Angles[f] {
			if !p.Angles[f][j].Equals(o.Angles[f][j], tol) {
				return false
			}
		}
	}
	return true
}

func (p HandPose) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s hand:", p.Side)
	for _, f := range hand.Fingers {
		fmt.Fprintf(&b, " %s=%.2f", f, p.Flexion[f])
	}
	return b.String()
}

// Serialize renders the pose as
// [side,[positions],[rotations],[angles],[flexion],orientation].
func (p HandPose) Serialize() string {
	positions := make([][]geom.Vect3D, hand.NumFingers)
	rotations := make([][]geom.Quat, hand.NumFingers)
	angles := make([][]geom.Vect3D, hand.NumFingers)
	for f := range p.Positions {
		positions[f] = p.Positions[f][:]
		rotations[f] = p.Rotations[f][:]
		angles[f] = p.Angles[f][:]
	}
	return codec.Join(
		p.Side.String(),
		codec.FormatVects2D(positions),
		codec.FormatQuats2D(rotations),
		codec.FormatVects2D(angles),
		codec.FormatFloats(p.Flexion[:]),
		codec.FormatQuat(p.Orientation),
	)
}

// Deserialize parses a record produced by Serialize.
func Deserialize(record string) (HandPose, error) {
	var p HandPose
	blocks, err := codec.Expect(record, 6)
	if err != nil {
		return p, fmt.Errorf("hand pose: %w", err)
	}
	if p.Side, err = hand.ParseSide(blocks[0]); err != nil {
		return p, fmt.Errorf("hand pose: %w", err)
	}
	positions, err := codec.ParseVects2D(blocks[1])
	if err != nil {
		return p, fmt.Errorf("hand pose positions: %w", err)
	}
	rotations, err := codec.ParseQuats2D(blocks[2])
	if err != nil {
		return p, fmt.Errorf("hand pose rotations: %w", err)
	}
	angles, err := codec.ParseVects2D(blocks[3])
	if err != nil {
		return p, fmt.Errorf("hand pose angles: %w", err)
	}
	flexion, err := codec.ParseFloats(blocks[4])
	if err != nil {
		return p, fmt.Errorf("hand pose flexion: %w", err)
	}
	if p.Orientation, err = codec.ParseQuat(blocks[5]); err != nil {
		return p, fmt.Errorf("hand pose orientation: %w", err)
	}

	if len(positions) != hand.NumFingers || len(rotations) != hand.NumFingers ||
		len(angles) != hand.NumFingers || len(flexion) != hand.NumFingers {
		return p, fmt.Errorf("%w: hand pose needs %d fingers", codec.ErrMalformed, hand.NumFingers)
	}
	for f := 0; f < hand.NumFingers; f++ {
		if len(positions[f]) != hand.PositionsPerFinger || len(rotations[f]) != hand.PositionsPerFinger ||
			len(angles[f]) != hand.JointsPerFinger {
			return p, fmt.Errorf("%w: %s has wrong joint count", codec.ErrMalformed, hand.Finger(f))
		}
		copy(p.Positions[f][:], positions[f])
		copy(p.Rotations[f][:], rotations[f])
		copy(p.Angles[f][:], angles[f])
	}
	copy(p.Flexion[:], flexion)
	return p, nil
}

func absf(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
