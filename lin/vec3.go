// Package lin provides the pure 3-D vector and quaternion algebra used by
// the morph instantiator and simulation scheduler. Every operation reads
// its arguments and writes a new result; arguments are never mutated.
package lin

import "math"

// V3 is a 3 element vector, also usable as a point.
type V3 struct {
	X float64
	Y float64
	Z float64
}

// Zero is the additive identity vector. Callers must not mutate it.
var Zero = V3{0, 0, 0}

// Add returns v+w.
func Add(v, w V3) V3 { return V3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Sub returns v-w.
func Sub(v, w V3) V3 { return V3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// Scale returns v scaled by s.
func Scale(v V3, s float64) V3 { return V3{v.X * s, v.Y * s, v.Z * s} }

// Neg returns -v.
func Neg(v V3) V3 { return V3{-v.X, -v.Y, -v.Z} }

// Dot returns the dot product of v and w.
func Dot(v, w V3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Cross returns the cross product v×w.
func Cross(v, w V3) V3 {
	return V3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Len returns the Euclidean length of v.
func Len(v V3) float64 { return math.Sqrt(Dot(v, v)) }

// Axis returns the unit vector along the given axis index (0=X, 1=Y, 2=Z),
// scaled by dir (expected ±1).
func Axis(axisIdx int, dir float64) V3 {
	v := V3{}
	switch axisIdx {
	case 0:
		v.X = dir
	case 1:
		v.Y = dir
	case 2:
		v.Z = dir
	}
	return v
}

// Finite reports whether every component of v is finite (no NaN/Inf).
func Finite(v V3) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Aeq reports whether a and b (two vectors or two quaternions) are equal
// within a small epsilon, used in tests where exact float equality is
// unreliable.
func Aeq[T V3 | Q](a, b T) bool {
	const eps = 1e-9
	switch x := any(a).(type) {
	case V3:
		y := any(b).(V3)
		return math.Abs(x.X-y.X) < eps && math.Abs(x.Y-y.Y) < eps && math.Abs(x.Z-y.Z) < eps
	case Q:
		y := any(b).(Q)
		return math.Abs(x.X-y.X) < eps && math.Abs(x.Y-y.Y) < eps &&
			math.Abs(x.Z-y.Z) < eps && math.Abs(x.W-y.W) < eps
	}
	return false
}
