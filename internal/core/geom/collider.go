package geom

// ColliderKind selects which fields of a Collider are meaningful.
type ColliderKind uint8

const (
	ColliderCircle ColliderKind = iota
	ColliderBox
)

// Collider is an exact collision shape in world space.
// For circles Pos/Rad are used; for boxes Box is used.
type Collider struct {
	Kind ColliderKind
	Pos  Vec2
	Rad  float32
	Box  AABB
}

func Circle(pos Vec2, rad float32) Collider {
	return Collider{Kind: ColliderCircle, Pos: pos, Rad: rad}
}

func Box(b AABB) Collider {
	return Collider{Kind: ColliderBox, Box: b}
}

// Bounds returns the bounding box of the collider.
func (c Collider) Bounds() AABB {
	if c.Kind == ColliderCircle {
		return BoxAround(c.Pos, c.Rad, c.Rad)
	}
	return c.Box
}

// Translate returns the collider moved by off.
func (c Collider) Translate(off Vec2) Collider {
	c.Pos = c.Pos.Add(off)
	c.Box = AABB{Min: c.Box.Min.Add(off), Max: c.Box.Max.Add(off)}
	return c
}

// Scale returns the collider scaled around its centre.
func (c Collider) Scale(s float32) Collider {
	if c.Kind == ColliderCircle {
		c.Rad *= s
		return c
	}
	ctr := c.Box.Center()
	half := c.Box.Max.Sub(ctr).Mul(s)
	c.Box = AABB{Min: ctr.Sub(half), Max: ctr.Add(half)}
	return c
}

// Intersects reports whether two colliders overlap.
func (c Collider) Intersects(o Collider) bool {
	switch {
	case c.Kind == ColliderCircle && o.Kind == ColliderCircle:
		r := c.Rad + o.Rad
		return c.Pos.DistSq(o.Pos) <= r*r
	case c.Kind == ColliderCircle:
		return o.Box.OverlapsCircle(c.Pos, c.Rad)
	case o.Kind == ColliderCircle:
		return c.Box.OverlapsCircle(o.Pos, o.Rad)
	default:
		return c.Box.Overlaps(o.Box)
	}
}

// SegmentHit returns where segment a->e first touches the collider.
func (c Collider) SegmentHit(a, e Vec2) (float32, bool) {
	if c.Kind == ColliderCircle {
		return SegmentCircleHit(a, e, c.Pos, c.Rad)
	}
	return c.Box.RayHit(a, e)
}

// PushCircleOut returns the offset that moves circle (p, r) out of c, and
// whether the two overlapped at all.
func (c Collider) PushCircleOut(p Vec2, r float32) (Vec2, bool) {
	if c.Kind == ColliderCircle {
		d := p.Sub(c.Pos)
		total := c.Rad + r
		distSq := d.LenSq()
		if distSq >= total*total {
			return Vec2{}, false
		}
		dist := d.Len()
		n := d.Normalize(Vec2{1, 0})
		return n.Mul(total - dist), true
	}
	cp := c.Box.ClosestPoint(p)
	d := p.Sub(cp)
	if d.LenSq() >= r*r {
		return Vec2{}, false
	}
	if !d.IsZero() {
		dist := d.Len()
		return d.Mul(1 / dist).Mul(r - dist), true
	}
	// Centre inside the box: leave along the shallowest axis.
	left := p.X - c.Box.Min.X
	right := c.Box.Max.X - p.X
	down := p.Y - c.Box.Min.Y
	up := c.Box.Max.Y - p.Y
	m := min(left, right, down, up)
	switch m {
	case left:
		return Vec2{-(left + r), 0}, true
	case right:
		return Vec2{right + r, 0}, true
	case down:
		return Vec2{0, -(down + r)}, true
	default:
		return Vec2{0, up + r}, true
	}
}
