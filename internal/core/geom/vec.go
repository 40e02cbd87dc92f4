package geom

import "math"

// Vec2 is a 2D world-space vector. World units are float32 like the wire format.
type Vec2 struct {
	X float32
	Y float32
}

func V(x, y float32) Vec2 { return Vec2{X: x, Y: y} }

func (a Vec2) Add(b Vec2) Vec2       { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2       { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Mul(s float32) Vec2    { return Vec2{a.X * s, a.Y * s} }
func (a Vec2) Dot(b Vec2) float32    { return a.X*b.X + a.Y*b.Y }
func (a Vec2) LenSq() float32        { return a.X*a.X + a.Y*a.Y }
func (a Vec2) Len() float32          { return float32(math.Sqrt(float64(a.LenSq()))) }
func (a Vec2) DistSq(b Vec2) float32 { return a.Sub(b).LenSq() }
func (a Vec2) IsZero() bool          { return a.X == 0 && a.Y == 0 }

// Normalize returns the unit vector of a, or fallback when a is (near) zero.
func (a Vec2) Normalize(fallback Vec2) Vec2 {
	l := a.Len()
	if l < 1e-6 {
		return fallback
	}
	return Vec2{a.X / l, a.Y / l}
}

// Lerp interpolates between a and b.
func Lerp(a, b Vec2, t float32) Vec2 {
	return Vec2{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

func LerpF(a, b, t float32) float32 { return a + (b-a)*t }

func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether both components are real numbers.
func (a Vec2) IsFinite() bool {
	return !math.IsNaN(float64(a.X)) && !math.IsInf(float64(a.X), 0) &&
		!math.IsNaN(float64(a.Y)) && !math.IsInf(float64(a.Y), 0)
}

// Rotate returns a rotated by rad radians counter-clockwise.
func (a Vec2) Rotate(rad float32) Vec2 {
	s, c := math.Sincos(float64(rad))
	return Vec2{
		X: a.X*float32(c) - a.Y*float32(s),
		Y: a.X*float32(s) + a.Y*float32(c),
	}
}
