package lin

import "math"

// Q is a unit quaternion representing a 3-D rotation.
type Q struct {
	X float64
	Y float64
	Z float64
	W float64
}

// Identity is the no-rotation quaternion. Callers must not mutate it.
var Identity = Q{0, 0, 0, 1}

// EulerToQuat converts Euler angles given in degrees about the parent-local
// X, Y, then Z axes (intrinsic composition — each successive rotation is
// applied about the axes as already rotated by the previous one) into an
// equivalent quaternion.
func EulerToQuat(rx, ry, rz float64) Q {
	hx := rx * math.Pi / 180 / 2
	hy := ry * math.Pi / 180 / 2
	hz := rz * math.Pi / 180 / 2
	sx, cx := math.Sin(hx), math.Cos(hx)
	sy, cy := math.Sin(hy), math.Cos(hy)
	sz, cz := math.Sin(hz), math.Cos(hz)

	return Q{
		X: sx*cy*cz + cx*sy*sz,
		Y: cx*sy*cz - sx*cy*sz,
		Z: cx*cy*sz + sx*sy*cz,
		W: cx*cy*cz - sx*sy*sz,
	}
}

// Mult returns the Hamilton product r*s: the rotation that first applies
// s, then r.
func Mult(r, s Q) Q {
	return Q{
		W: r.W*s.W - r.X*s.X - r.Y*s.Y - r.Z*s.Z,
		X: r.W*s.X + r.X*s.W + r.Y*s.Z - r.Z*s.Y,
		Y: r.W*s.Y - r.X*s.Z + r.Y*s.W + r.Z*s.X,
		Z: r.W*s.Z + r.X*s.Y - r.Y*s.X + r.Z*s.W,
	}
}

// Conjugate returns the conjugate of q.
func Conjugate(q Q) Q { return Q{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W} }

// lenSq returns the squared length of q.
func lenSq(q Q) float64 { return q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W }

// Invert returns the inverse of q. A near-zero-norm quaternion inverts to
// Identity rather than dividing by (near) zero.
func Invert(q Q) Q {
	n := lenSq(q)
	if n < 1e-12 {
		return Identity
	}
	c := Conjugate(q)
	inv := 1 / n
	return Q{X: c.X * inv, Y: c.Y * inv, Z: c.Z * inv, W: c.W * inv}
}

// Unit returns q normalized to unit length. A near-zero-norm quaternion
// returns Identity.
func Unit(q Q) Q {
	n := math.Sqrt(lenSq(q))
	if n < 1e-12 {
		return Identity
	}
	inv := 1 / n
	return Q{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
}

// Rotate returns v rotated by q.
func Rotate(q Q, v V3) V3 {
	qv := V3{q.X, q.Y, q.Z}
	t := Scale(Cross(qv, v), 2)
	return Add(Add(v, Scale(t, q.W)), Cross(qv, t))
}

// Finite reports whether every component of q is finite.
func (q Q) Finite() bool {
	return !math.IsNaN(q.X) && !math.IsInf(q.X, 0) &&
		!math.IsNaN(q.Y) && !math.IsInf(q.Y, 0) &&
		!math.IsNaN(q.Z) && !math.IsInf(q.Z, 0) &&
		!math.IsNaN(q.W) && !math.IsInf(q.W, 0)
}
