package geom

import (
	"math"
	"math/rand/v2"
)

// Vec2 is a point or direction in world units
type Vec2 struct {
	X float64 `msgpack:"x" json:"x"`
	Y float64 `msgpack:"y" json:"y"`
}

// V is shorthand for Vec2{x, y}
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Mul(s float64) Vec2 { return Vec2{a.X * s, a.Y * s} }
func (a Vec2) Dot(b Vec2) float64 { return a.X*b.X + a.Y*b.Y }
func (a Vec2) LenSq() float64 { return a.X*a.X + a.Y*a.Y }
func (a Vec2) Len() float64 { return math.Sqrt(a.LenSq()) }
func (a Vec2) Dist(b Vec2) float64 { return b.Sub(a).Len() }
func (a Vec2) DistSq(b Vec2) float64 { return b.Sub(a).LenSq() }

// Normalize returns the unit vector of a, or the zero vector when a has no length
func (a Vec2) Normalize() Vec2 {
	l := a.Len()
	if l < 1e-9 {
		return Vec2{}
	}
	return Vec2{a.X / l, a.Y / l}
}

// Lerp interpolates from a to b by t
func (a Vec2) Lerp(b Vec2, t float64) Vec2 {
	return Vec2{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Lerp interpolates scalars
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// ClampVec clamps both components of v to the box [lo, hi]
func ClampVec(v, lo, hi Vec2) Vec2 {
	return Vec2{Clamp(v.X, lo.X, hi.X), Clamp(v.Y, lo.Y, hi.Y)}
}

// RandomUnit returns a random direction
func RandomUnit(r *rand.Rand) Vec2 {
	a := r.Float64() * 2 * math.Pi
	return Vec2{math.Cos(a), math.Sin(a)}
}

// RandomPointInCircle returns a uniformly distributed offset within radius rad
func RandomPointInCircle(r *rand.Rand, rad float64) Vec2 {
	if rad <= 0 {
		return Vec2{}
	}
	return RandomUnit(r).Mul(rad * math.Sqrt(r.Float64()))
}

// RandomPointInDonut returns a point whose distance from the origin is in [inner, outer]
func RandomPointInDonut(r *rand.Rand, inner, outer float64) Vec2 {
	d := math.Sqrt(Lerp(inner*inner, outer*outer, r.Float64()))
	return RandomUnit(r).Mul(d)
}
