package hand

import (
	"math"

	"github.com/ayusman/glovecore/internal/geom"
)

// HandAngles holds the joint angle triplet of every articulated joint, in
// degrees, ordered thumb to pinky and proximal to distal. Each triplet is
// (twist, flexion, abduction).
type HandAngles [NumFingers][JointsPerFinger]geom.Vect3D

// Component returns the angle of the given axis.
func Component(v geom.Vect3D, axis Axis) float32 {
	switch axis {
	case AxisTwist:
		return v.X
	case AxisAbduction:
		return v.Z
	default:
		return v.Y
	}
}

// WithComponent returns v with one axis replaced.
func WithComponent(v geom.Vect3D, axis Axis, value float32) geom.Vect3D {
	switch axis {
	case AxisTwist:
		v.X = value
	case AxisAbduction:
		v.Z = value
	default:
		v.Y = value
	}
	return v
}

// Mirror converts angles between the right and left hand conventions. Twist and
// abduction change sign, flexion does not.
func (a HandAngles) Mirror() HandAngles {
	var out HandAngles
	for f := range a {
		for j := range a[f] {
			v := a[f][j]
			out[f][j] = geom.V(-v.X, v.Y, -v.Z)
		}
	}
	return out
}

// FlexionSum returns the summed flexion of one finger, in degrees.
func (a HandAngles) FlexionSum(f Finger) float32 {
	var sum float32
	for _, v := range a[f] {
		sum += v.Y
	}
	return sum
}

// Full flexion references per joint, in degrees (right hand). A fist reaches
// these values; their sum per finger is what "fully flexed" means.
var fullFlexion = [NumFingers][JointsPerFinger]float32{
	{35, 55, 75},  // thumb CMC, MCP, IP
	{90, 100, 70}, // index MCP, PIP, DIP
	{90, 100, 70}, // middle
	{90, 100, 70}, // ring
	{90, 100, 70}, // pinky
}

// FullFlexion returns the per-joint flexion angles of a fully flexed finger.
func FullFlexion(f Finger) [JointsPerFinger]float32 {
	return fullFlexion[f]
}

// Joint limits in degrees for the right hand: [joint][min/max] as angle triplets.
var fingerLimits = [JointsPerFinger][2]geom.Vect3D{
	{geom.V(0, -30, -20), geom.V(0, 100, 20)}, // MCP
	{geom.V(0, 0, 0), geom.V(0, 120, 0)},      // PIP
	{geom.V(0, -10, 0), geom.V(0, 90, 0)},     // DIP
}

var thumbLimits = [JointsPerFinger][2]geom.Vect3D{
	{geom.V(-20, -20, -60), geom.V(60, 60, 15)}, // CMC
	{geom.V(0, -10, 0), geom.V(0, 80, 0)},       // MCP
	{geom.V(0, -20, 0), geom.V(0, 90, 0)},       // IP
}

// JointLimits returns the minimum and maximum joint angles of a finger joint.
func JointLimits(side Side, f Finger, joint int) (lo, hi geom.Vect3D) {
	table := fingerLimits
	if f == Thumb {
		table = thumbLimits
	}
	if joint < 0 || joint >= JointsPerFinger {
		return geom.Zero, geom.Zero
	}
	lo, hi = table[joint][0], table[joint][1]
	if side == Left {
		// mirroring flips the sign of twist and abduction, so the bounds swap
		lo, hi = geom.V(-hi.X, lo.Y, -hi.Z), geom.V(-lo.X, hi.Y, -lo.Z)
	}
	return lo, hi
}

// ClampJointAngle limits an angle triplet to the range of motion of a joint.
func ClampJointAngle(side Side, f Finger, joint int, v geom.Vect3D) geom.Vect3D {
	lo, hi := JointLimits(side, f, joint)
	return geom.V(clamp(v.X, lo.X, hi.X), clamp(v.Y, lo.Y, hi.Y), clamp(v.Z, lo.Z, hi.Z))
}

// NormalizeFlexion maps a summed flexion to [0, 1] using the sum of a fully
// flexed finger as reference. A non-positive reference yields 0.
func NormalizeFlexion(sum, reference float32) float32 {
	if reference <= 0 {
		return 0
	}
	return Clamp01(sum / reference)
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float32) float32 {
	return clamp(v, 0, 1)
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float32) float32 {
	if v < lo || math.IsNaN(float64(v)) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FlatHandAngles returns the angles of a fully extended hand: every joint at 0.
func FlatHandAngles(side Side) HandAngles {
	return HandAngles{}
}

// FistAngles returns the angles of a closed fist: every joint at full flexion.
func FistAngles(side Side) HandAngles {
	var a HandAngles
	for _, f := range Fingers {
		for j := 0; j < JointsPerFinger; j++ {
			a[f][j] = geom.V(0, fullFlexion[f][j], 0)
		}
	}
	return a
}

// ThumbsUpAngles returns the angles of a thumbs up: fingers fully flexed, thumb
// extended.
func ThumbsUpAngles(side Side) HandAngles {
	a := FistAngles(side)
	a[Thumb] = [JointsPerFinger]geom.Vect3D{}
	return a
}

// IdleAngles returns a relaxed, slightly curled hand.
func IdleAngles(side Side) HandAngles {
	a := HandAngles{
		{geom.V(10, 10, -10), geom.V(0, 10, 0), geom.V(0, 10, 0)},
		{geom.V(0, 15, 2), geom.V(0, 20, 0), geom.V(0, 10, 0)},
		{geom.V(0, 15, 0), geom.V(0, 20, 0), geom.V(0, 10, 0)},
		{geom.V(0, 15, -2), geom.V(0, 20, 0), geom.V(0, 10, 0)},
		{geom.V(0, 15, -4), geom.V(0, 20, 0), geom.V(0, 10, 0)},
	}
	if side == Left {
		return a.Mirror()
	}
	return a
}
