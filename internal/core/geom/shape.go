package geom

import "math"

// AABB is an axis-aligned box given by its min and max corners.
type AABB struct {
	Min Vec2
	Max Vec2
}

func BoxAround(c Vec2, halfW, halfH float32) AABB {
	return AABB{Min: Vec2{c.X - halfW, c.Y - halfH}, Max: Vec2{c.X + halfW, c.Y + halfH}}
}

func (b AABB) Center() Vec2 { return Lerp(b.Min, b.Max, 0.5) }

func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y
}

func (b AABB) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// ClosestPoint returns the point of b nearest to p.
func (b AABB) ClosestPoint(p Vec2) Vec2 {
	return Vec2{Clamp(p.X, b.Min.X, b.Max.X), Clamp(p.Y, b.Min.Y, b.Max.Y)}
}

// OverlapsCircle reports whether the box touches the circle (c, r).
func (b AABB) OverlapsCircle(c Vec2, r float32) bool {
	return b.ClosestPoint(c).DistSq(c) <= r*r
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: Vec2{min(b.Min.X, o.Min.X), min(b.Min.Y, o.Min.Y)},
		Max: Vec2{max(b.Max.X, o.Max.X), max(b.Max.Y, o.Max.Y)},
	}
}

// SegmentOverlaps runs a slab test of segment a->b against the box.
func (b AABB) SegmentOverlaps(a, e Vec2) bool {
	_, ok := b.RayHit(a, e)
	return ok
}

// RayHit returns the segment parameter t in [0,1] where a->e first enters
// the box. A segment starting inside the box hits at t=0.
func (b AABB) RayHit(a, e Vec2) (float32, bool) {
	d := e.Sub(a)
	tMin, tMax := float32(0), float32(1)
	for axis := 0; axis < 2; axis++ {
		var o, dir, lo, hi float32
		if axis == 0 {
			o, dir, lo, hi = a.X, d.X, b.Min.X, b.Max.X
		} else {
			o, dir, lo, hi = a.Y, d.Y, b.Min.Y, b.Max.Y
		}
		if dir == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - o) / dir
		t2 := (hi - o) / dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = max(tMin, t1)
		tMax = min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// SegmentCircleHit returns the parameter t in [0,1] where segment a->e first
// touches the circle (c, r).
func SegmentCircleHit(a, e, c Vec2, r float32) (float32, bool) {
	d := e.Sub(a)
	f := a.Sub(c)
	if f.LenSq() <= r*r {
		return 0, true
	}
	qa := d.Dot(d)
	if qa == 0 {
		return 0, false
	}
	qb := 2 * f.Dot(d)
	qc := f.Dot(f) - r*r
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return 0, false
	}
	sq := float32(math.Sqrt(float64(disc)))
	t := (-qb - sq) / (2 * qa)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}
