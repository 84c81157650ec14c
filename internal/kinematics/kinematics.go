// Package kinematics computes joint positions and orientations of articulated
// finger chains.
package kinematics

import (
	"fmt"

	"github.com/ayusman/glovecore/internal/geom"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/handmodel"
)

// Forward is the local bone direction.
var Forward = geom.V(1, 0, 0)

// ForwardKinematics chains joint rotations and bone translations outward from
// the chain start. angles holds one (twist, flexion, abduction) triplet in
// degrees per joint, relative to the parent joint, and lengths the bone that
// follows each joint. The result has one entry more than angles: the last
// position is the tip of the final bone, carrying the final joint's rotation.
func ForwardKinematics(start geom.Vect3D, startRot geom.Quat, lengths []float32, angles []geom.Vect3D) ([]geom.Vect3D, []geom.Quat, error) {
	if len(angles) == 0 {
		return nil, nil, fmt.Errorf("forward kinematics without joints: %w", hand.ErrInvalidArgument)
	}
	if len(lengths) != len(angles) {
		return nil, nil, fmt.Errorf("forward kinematics got %d bone lengths for %d joints: %w",
			len(lengths), len(angles), hand.ErrInvalidArgument)
	}

	positions := make([]geom.Vect3D, len(angles)+1)
	rotations := make([]geom.Quat, len(angles)+1)
	chain(start, startRot, lengths, angles, positions, rotations)
	return positions, rotations, nil
}

// chain fills positions and rotations, which must hold len(angles)+1 entries.
func chain(start geom.Vect3D, startRot geom.Quat, lengths []float32, angles []geom.Vect3D, positions []geom.Vect3D, rotations []geom.Quat) {
	n := len(angles)
	positions[0] = start
	rotations[0] = startRot.Mul(geom.FromEulerDegrees(angles[0]))
	for i := 1; i <= n; i++ {
		bone := rotations[i-1].Rotate(Forward.Scale(lengths[i-1]))
		positions[i] = positions[i-1].Add(bone)
		if i < n {
			rotations[i] = rotations[i-1].Mul(geom.FromEulerDegrees(angles[i]))
		} else {
			rotations[i] = rotations[i-1]
		}
	}
}

// FingerChain is the solved chain of one finger: its three joints and the tip.
type FingerChain struct {
	Positions [hand.PositionsPerFinger]geom.Vect3D
	Rotations [hand.PositionsPerFinger]geom.Quat
}

// Tip returns the fingertip position.
func (c FingerChain) Tip() geom.Vect3D {
	return c.Positions[hand.PositionsPerFinger-1]
}

// Finger solves one finger of a hand model.
func Finger(model *handmodel.Model, f hand.Finger, angles [hand.JointsPerFinger]geom.Vect3D) (FingerChain, error) {
	geo, err := model.Finger(f)
	if err != nil {
		return FingerChain{}, err
	}
	return solve(geo, angles), nil
}

func solve(geo handmodel.Finger, angles [hand.JointsPerFinger]geom.Vect3D) FingerChain {
	var c FingerChain
	chain(geo.StartPosition, geo.StartRotation, geo.Lengths[:], angles[:], c.Positions[:], c.Rotations[:])
	return c
}

// Hand solves every finger of a hand model.
func Hand(model *handmodel.Model, angles hand.HandAngles) [hand.NumFingers]FingerChain {
	var chains [hand.NumFingers]FingerChain
	for _, f := range hand.Fingers {
		chains[f] = solve(model.Fingers[f], angles[f])
	}
	return chains
}
