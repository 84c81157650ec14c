// Package geom provides the vector and rotation value types used throughout the
// hand pipeline. Components are stored in single precision; the arithmetic that
// benefits from it is carried out in double precision through gonum.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// zeroLength is the length below which a vector is considered degenerate.
const zeroLength = 1e-9

// Vect3D is an immutable 3D vector. Positions are expressed in millimeters,
// directions and angle triplets are unitless.
type Vect3D struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Zero is the (0, 0, 0) vector.
var Zero = Vect3D{}

// V is shorthand for constructing a Vect3D.
func V(x, y, z float32) Vect3D {
	return Vect3D{X: x, Y: y, Z: z}
}

func (v Vect3D) r3() r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

func fromR3(p r3.Vec) Vect3D {
	return Vect3D{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
}

// Add returns v + o.
func (v Vect3D) Add(o Vect3D) Vect3D {
	return Vect3D{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vect3D) Sub(o Vect3D) Vect3D {
	return Vect3D{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v multiplied by f.
func (v Vect3D) Scale(f float32) Vect3D {
	return Vect3D{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// Dot returns the dot product of v and o.
func (v Vect3D) Dot(o Vect3D) float32 {
	return float32(r3.Dot(v.r3(), o.r3()))
}

// Cross returns the cross product v x o.
func (v Vect3D) Cross(o Vect3D) Vect3D {
	return fromR3(r3.Cross(v.r3(), o.r3()))
}

// Length returns the euclidean length of v.
func (v Vect3D) Length() float32 {
	return float32(r3.Norm(v.r3()))
}

// Distance returns the euclidean distance between v and o.
func (v Vect3D) Distance(o Vect3D) float32 {
	return v.Sub(o).Length()
}

// Normalize returns v scaled to unit length. When v has (almost) no length the
// zero vector is returned together with false.
func (v Vect3D) Normalize() (Vect3D, bool) {
	p := v.r3()
	if r3.Norm(p) < zeroLength {
		return Zero, false
	}
	return fromR3(r3.Unit(p)), true
}

// Lerp interpolates between a and b. t is not clamped, values outside [0, 1]
// extrapolate along the same line.
func Lerp(a, b Vect3D, t float32) Vect3D {
	return a.Add(b.Sub(a).Scale(t))
}

// Equals reports whether every component of v and o differ by at most tol.
func (v Vect3D) Equals(o Vect3D, tol float32) bool {
	return absf(v.X-o.X) <= tol && absf(v.Y-o.Y) <= tol && absf(v.Z-o.Z) <= tol
}

// String formats the vector as "(x, y, z)".
func (v Vect3D) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// Radians converts a triplet of angles from degrees to radians.
func Radians(deg Vect3D) Vect3D {
	return deg.Scale(math.Pi / 180)
}

// Degrees converts a triplet of angles from radians to degrees.
func Degrees(rad Vect3D) Vect3D {
	return rad.Scale(180 / math.Pi)
}

func absf(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
