package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// driftTolerance is how far a composed quaternion's magnitude may stray from 1
// before it is renormalized.
const driftTolerance = 1e-5

// Quat is a unit quaternion describing a 3D rotation.
type Quat struct {
	W float32 `json:"w"`
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Identity is the rotation that leaves every vector unchanged.
var Identity = Quat{W: 1}

func (q Quat) number() quat.Number {
	return quat.Number{Real: float64(q.W), Imag: float64(q.X), Jmag: float64(q.Y), Kmag: float64(q.Z)}
}

func fromNumber(n quat.Number) Quat {
	return Quat{W: float32(n.Real), X: float32(n.Imag), Y: float32(n.Jmag), Z: float32(n.Kmag)}
}

// normalized scales n to unit length when its magnitude drifted. A zero
// quaternion becomes the identity.
func normalized(n quat.Number) quat.Number {
	mag := quat.Abs(n)
	if mag < zeroLength {
		return quat.Number{Real: 1}
	}
	if math.Abs(mag-1) > driftTolerance {
		return quat.Scale(1/mag, n)
	}
	return n
}

// FromAngleAxis returns the rotation of angle radians around axis. A degenerate
// axis yields the identity.
func FromAngleAxis(angle float32, axis Vect3D) Quat {
	if axis.Length() < zeroLength {
		return Identity
	}
	return fromNumber(quat.Number(r3.NewRotation(float64(angle), axis.r3())))
}

// FromEuler builds a rotation from angles in radians, applied around X first,
// then Y, then Z.
func FromEuler(rad Vect3D) Quat {
	qx := quat.Number(r3.NewRotation(float64(rad.X), r3.Vec{X: 1}))
	qy := quat.Number(r3.NewRotation(float64(rad.Y), r3.Vec{Y: 1}))
	qz := quat.Number(r3.NewRotation(float64(rad.Z), r3.Vec{Z: 1}))
	return fromNumber(normalized(quat.Mul(qz, quat.Mul(qy, qx))))
}

// FromEulerDegrees is FromEuler for angles expressed in degrees.
func FromEulerDegrees(deg Vect3D) Quat {
	return FromEuler(Radians(deg))
}

// ToEuler decomposes q into X, Y, Z angles in radians, the inverse of FromEuler.
// The Y angle is limited to [-pi/2, pi/2].
func (q Quat) ToEuler() Vect3D {
	n := normalized(q.number())
	w, x, y, z := n.Real, n.Imag, n.Jmag, n.Kmag

	roll := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	sinp := 2 * (w*y - z*x)
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}
	pitch := math.Asin(sinp)

	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return Vect3D{X: float32(roll), Y: float32(pitch), Z: float32(yaw)}
}

// ToEulerDegrees is ToEuler expressed in degrees.
func (q Quat) ToEulerDegrees() Vect3D {
	return Degrees(q.ToEuler())
}

// Mul composes two rotations: the result applies o first, then q.
func (q Quat) Mul(o Quat) Quat {
	return fromNumber(normalized(quat.Mul(q.number(), o.number())))
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vect3D) Vect3D {
	return fromR3(r3.Rotation(normalized(q.number())).Rotate(v.r3()))
}

// Inverse returns the rotation in the opposite direction.
func (q Quat) Inverse() Quat {
	return fromNumber(normalized(quat.Conj(q.number())))
}

// Magnitude returns the quaternion's length.
func (q Quat) Magnitude() float32 {
	return float32(quat.Abs(q.number()))
}

// Normalized returns q scaled to unit length.
func (q Quat) Normalized() Quat {
	n := q.number()
	mag := quat.Abs(n)
	if mag < zeroLength {
		return Identity
	}
	return fromNumber(quat.Scale(1/mag, n))
}

// Mirror reflects the rotation through the XZ plane, turning a right-handed
// joint rotation into its left-handed counterpart.
func (q Quat) Mirror() Quat {
	return Quat{W: q.W, X: -q.X, Y: q.Y, Z: -q.Z}
}

// Equals reports whether q and o describe the same rotation within tol per
// component. q and -q are treated as equal.
func (q Quat) Equals(o Quat, tol float32) bool {
	same := absf(q.W-o.W) <= tol && absf(q.X-o.X) <= tol && absf(q.Y-o.Y) <= tol && absf(q.Z-o.Z) <= tol
	if same {
		return true
	}
	return absf(q.W+o.W) <= tol && absf(q.X+o.X) <= tol && absf(q.Y+o.Y) <= tol && absf(q.Z+o.Z) <= tol
}

// IsIdentity reports whether q leaves vectors unchanged.
func (q Quat) IsIdentity() bool {
	return q.Equals(Identity, 1e-6)
}

// String formats the quaternion as "(w, x, y, z)".
func (q Quat) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f, %.4f)", q.W, q.X, q.Y, q.Z)
}
