package geom

import "math"

// ShapeKind selects which fields of a Shape are meaningful
type ShapeKind uint8

const (
	KindCircle ShapeKind = iota
	KindBox
)

// Shape is a collision shape: a circle (Center, Radius) or an axis-aligned box (Min, Max)
type Shape struct {
	Kind   ShapeKind
	Center Vec2
	Radius float64
	Min    Vec2
	Max    Vec2
}

// Circle builds a circle shape
func Circle(center Vec2, radius float64) Shape {
	return Shape{Kind: KindCircle, Center: center, Radius: radius}
}

// Box builds an axis-aligned box from two corners
func Box(a, b Vec2) Shape {
	return Shape{
		Kind: KindBox,
		Min:  Vec2{math.Min(a.X, b.X), math.Min(a.Y, b.Y)},
		Max:  Vec2{math.Max(a.X, b.X), math.Max(a.Y, b.Y)},
	}
}

// BoxAt builds a box of the given half extents around center
func BoxAt(center, half Vec2) Shape {
	return Box(center.Sub(half), center.Add(half))
}

// Bounds returns the axis-aligned bounding box of s
func (s Shape) Bounds() (Vec2, Vec2) {
	if s.Kind == KindCircle {
		r := Vec2{s.Radius, s.Radius}
		return s.Center.Sub(r), s.Center.Add(r)
	}
	return s.Min, s.Max
}

// Degenerate reports whether s encloses no area
func (s Shape) Degenerate() bool {
	if s.Kind == KindCircle {
		return !(s.Radius > 0)
	}
	return !(s.Max.X > s.Min.X && s.Max.Y > s.Min.Y)
}

// Centroid returns the center of s
func (s Shape) Centroid() Vec2 {
	if s.Kind == KindCircle {
		return s.Center
	}
	return s.Min.Lerp(s.Max, 0.5)
}

// Translate moves s by d
func (s Shape) Translate(d Vec2) Shape {
	s.Center = s.Center.Add(d)
	s.Min = s.Min.Add(d)
	s.Max = s.Max.Add(d)
	return s
}

// Contains reports whether p is inside or on the boundary of s
func (s Shape) Contains(p Vec2) bool {
	if s.Kind == KindCircle {
		return p.DistSq(s.Center) <= s.Radius*s.Radius
	}
	return p.X >= s.Min.X && p.X <= s.Max.X && p.Y >= s.Min.Y && p.Y <= s.Max.Y
}

// Overlap reports whether two shapes intersect. Touching counts.
func Overlap(a, b Shape) bool {
	switch {
	case a.Kind == KindCircle && b.Kind == KindCircle:
		return circleCircle(a.Center, a.Radius, b.Center, b.Radius)
	case a.Kind == KindBox && b.Kind == KindBox:
		return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X && a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y
	case a.Kind == KindCircle:
		return circleBox(a.Center, a.Radius, b.Min, b.Max)
	default:
		return circleBox(b.Center, b.Radius, a.Min, a.Max)
	}
}

func circleCircle(c1 Vec2, r1 float64, c2 Vec2, r2 float64) bool {
	radSum := r1 + r2
	return c1.DistSq(c2) <= radSum*radSum
}

func circleBox(c Vec2, r float64, min, max Vec2) bool {
	closest := ClampVec(c, min, max)
	return c.DistSq(closest) <= r*r
}

// SegmentHitsCircle checks if the segment a-b passes within r of center
func SegmentHitsCircle(a, b, center Vec2, r float64) bool {
	d := b.Sub(a)
	f := a.Sub(center)
	qa := d.LenSq()
	if qa < 1e-12 {
		return f.LenSq() <= r*r
	}
	qb := 2 * f.Dot(d)
	qc := f.LenSq() - r*r
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return false
	}
	disc = math.Sqrt(disc)
	t1 := (-qb - disc) / (2 * qa)
	t2 := (-qb + disc) / (2 * qa)
	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1) || (t1 <= 0 && t2 >= 1)
}

// SegmentHits checks whether the segment a-b touches s
func SegmentHits(a, b Vec2, s Shape) bool {
	if s.Kind == KindCircle {
		return SegmentHitsCircle(a, b, s.Center, s.Radius)
	}
	if s.Contains(a) || s.Contains(b) {
		return true
	}
	// slab test
	tmin, tmax := 0.0, 1.0
	d := b.Sub(a)
	for _, axis := range [2]struct{ o, d, lo, hi float64 }{
		{a.X, d.X, s.Min.X, s.Max.X},
		{a.Y, d.Y, s.Min.Y, s.Max.Y},
	} {
		if math.Abs(axis.d) < 1e-12 {
			if axis.o < axis.lo || axis.o > axis.hi {
				return false
			}
			continue
		}
		t1 := (axis.lo - axis.o) / axis.d
		t2 := (axis.hi - axis.o) / axis.d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}

// Expand grows s by r on every side
func (s Shape) Expand(r float64) Shape {
	if s.Kind == KindCircle {
		s.Radius += r
		return s
	}
	d := Vec2{r, r}
	s.Min = s.Min.Sub(d)
	s.Max = s.Max.Add(d)
	return s
}

// Separate returns where the centre of circle c must move so it no longer
// overlaps s. c is returned unchanged when they do not overlap.
func Separate(c Shape, s Shape) Vec2 {
	pos, r := c.Center, c.Radius
	if !Overlap(c, s) {
		return pos
	}
	if s.Kind == KindCircle {
		dir := pos.Sub(s.Center).Normalize()
		if dir == (Vec2{}) {
			dir = Vec2{1, 0}
		}
		return s.Center.Add(dir.Mul(r + s.Radius))
	}
	closest := ClampVec(pos, s.Min, s.Max)
	if closest != pos {
		return closest.Add(pos.Sub(closest).Normalize().Mul(r))
	}
	// centre inside the box: leave through the nearest side
	left, right := pos.X-s.Min.X, s.Max.X-pos.X
	down, up := pos.Y-s.Min.Y, s.Max.Y-pos.Y
	switch min(left, right, down, up) {
	case left:
		return Vec2{s.Min.X - r, pos.Y}
	case right:
		return Vec2{s.Max.X + r, pos.Y}
	case down:
		return Vec2{pos.X, s.Min.Y - r}
	default:
		return Vec2{pos.X, s.Max.Y + r}
	}
}
