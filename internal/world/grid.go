package world

import (
	"math"

	"github.com/survgo/server/internal/core/assert"
	"github.com/survgo/server/internal/core/geom"
	"go.uber.org/zap"
)

// CellSize is the edge length of a grid cell in world units. Most objects
// span one to four cells.
const CellSize = 16

const maxSegmentCells = 4096

type cellKey struct {
	x, y int32
}

func toCell(v float32) int32 {
	return int32(math.Floor(float64(v) / CellSize))
}

type cellRange struct {
	x0, y0, x1, y1 int32
}

func rangeOf(b geom.AABB) cellRange {
	return cellRange{toCell(b.Min.X), toCell(b.Min.Y), toCell(b.Max.X), toCell(b.Max.Y)}
}

func (r cellRange) count() int64 {
	return int64(r.x1-r.x0+1) * int64(r.y1-r.y0+1)
}

func (r cellRange) has(k cellKey) bool {
	return k.x >= r.x0 && k.x <= r.x1 && k.y >= r.y0 && k.y <= r.y1
}

// Grid is a sparse uniform-cell broad-phase index. An object occupies every
// cell its bounding box overlaps; membership changes only through Insert,
// Update and Remove. Queries return each overlapping object once, unordered.
// Accessed only from the game loop goroutine.
type Grid struct {
	cells   map[cellKey][]Object
	objects int
	stamp   uint32
	check   *assert.Checker
}

func NewGrid(check *assert.Checker) *Grid {
	return &Grid{
		cells: make(map[cellKey][]Object, 1024),
		check: check,
	}
}

func validBounds(b geom.AABB) bool {
	return b.Min.IsFinite() && b.Max.IsFinite() && b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y
}

// Insert adds o to every cell its bounds overlap.
func (g *Grid) Insert(o Object) {
	b := o.base()
	if b.inGrid {
		g.check.Violation("grid insert of present object", zapID(o.ID()))
		return
	}
	bounds := o.Bounds()
	if !validBounds(bounds) {
		g.check.Violation("grid insert with invalid bounds", zapID(o.ID()), zap.Any("bounds", bounds))
		return
	}
	r := rangeOf(bounds)
	b.cells = b.cells[:0]
	for x := r.x0; x <= r.x1; x++ {
		for y := r.y0; y <= r.y1; y++ {
			k := cellKey{x, y}
			g.cells[k] = append(g.cells[k], o)
			b.cells = append(b.cells, k)
		}
	}
	b.inGrid = true
	g.objects++
}

// Remove takes o out of every cell it occupies.
func (g *Grid) Remove(o Object) {
	b := o.base()
	if !b.inGrid {
		g.check.Violation("grid remove of absent object", zapID(o.ID()))
		return
	}
	for _, k := range b.cells {
		g.unlink(k, o)
	}
	b.cells = b.cells[:0]
	b.inGrid = false
	g.objects--
}

func (g *Grid) unlink(k cellKey, o Object) {
	cell := g.cells[k]
	for i, c := range cell {
		if c == o {
			last := len(cell) - 1
			cell[i] = cell[last]
			cell[last] = nil
			cell = cell[:last]
			break
		}
	}
	if len(cell) == 0 {
		delete(g.cells, k)
		return
	}
	g.cells[k] = cell
}

// Update recomputes o's cell membership from its current bounds. Moves of
// any distance are safe.
func (g *Grid) Update(o Object) {
	b := o.base()
	if !b.inGrid {
		g.check.Violation("grid update of absent object", zapID(o.ID()))
		return
	}
	bounds := o.Bounds()
	if !validBounds(bounds) {
		g.check.Violation("grid update with invalid bounds", zapID(o.ID()), zap.Any("bounds", bounds))
		return
	}
	r := rangeOf(bounds)
	if int64(len(b.cells)) == r.count() && len(b.cells) > 0 {
		first, last := b.cells[0], b.cells[len(b.cells)-1]
		if first == (cellKey{r.x0, r.y0}) && last == (cellKey{r.x1, r.y1}) {
			return
		}
	}
	for _, k := range b.cells {
		g.unlink(k, o)
	}
	b.cells = b.cells[:0]
	for x := r.x0; x <= r.x1; x++ {
		for y := r.y0; y <= r.y1; y++ {
			k := cellKey{x, y}
			g.cells[k] = append(g.cells[k], o)
			b.cells = append(b.cells, k)
		}
	}
}

// Contains reports whether o is currently indexed.
func (g *Grid) Contains(o Object) bool {
	return o.base().inGrid
}

// Len returns the number of indexed objects.
func (g *Grid) Len() int { return g.objects }

// Cells returns the number of non-empty cells.
func (g *Grid) Cells() int { return len(g.cells) }

func (g *Grid) nextStamp() uint32 {
	g.stamp++
	if g.stamp == 0 {
		for _, cell := range g.cells {
			for _, o := range cell {
				o.base().stamp = 0
			}
		}
		g.stamp = 1
	}
	return g.stamp
}

func (g *Grid) visit(k cellKey, stamp uint32, accept func(Object) bool, out []Object) []Object {
	for _, o := range g.cells[k] {
		b := o.base()
		if b.stamp == stamp {
			continue
		}
		b.stamp = stamp
		if accept(o) {
			out = append(out, o)
		}
	}
	return out
}

func (g *Grid) queryBox(box geom.AABB, accept func(Object) bool) []Object {
	if !validBounds(box) {
		return nil
	}
	stamp := g.nextStamp()
	r := rangeOf(box)
	var out []Object
	if r.count() > int64(len(g.cells)) {
		for k := range g.cells {
			if r.has(k) {
				out = g.visit(k, stamp, accept, out)
			}
		}
		return out
	}
	for x := r.x0; x <= r.x1; x++ {
		for y := r.y0; y <= r.y1; y++ {
			out = g.visit(cellKey{x, y}, stamp, accept, out)
		}
	}
	return out
}

// IntersectCircle returns objects whose bounds overlap the circle.
func (g *Grid) IntersectCircle(c geom.Vec2, r float32) []Object {
	if r < 0 || r != r {
		return nil
	}
	return g.queryBox(geom.BoxAround(c, r, r), func(o Object) bool {
		return o.Bounds().OverlapsCircle(c, r)
	})
}

// IntersectAABB returns objects whose bounds overlap the box [min, max].
func (g *Grid) IntersectAABB(min, max geom.Vec2) []Object {
	box := geom.AABB{Min: min, Max: max}
	return g.queryBox(box, func(o Object) bool {
		return o.Bounds().Overlaps(box)
	})
}

// IntersectCollider returns objects whose bounds overlap the collider.
func (g *Grid) IntersectCollider(col geom.Collider) []Object {
	if col.Kind == geom.ColliderCircle {
		return g.IntersectCircle(col.Pos, col.Rad)
	}
	return g.IntersectAABB(col.Box.Min, col.Box.Max)
}

// IntersectSegment returns objects whose bounds the segment a→e touches.
// Cells are walked along the segment instead of scanning its bounding box.
func (g *Grid) IntersectSegment(a, e geom.Vec2) []Object {
	if !a.IsFinite() || !e.IsFinite() {
		return nil
	}
	accept := func(o Object) bool {
		return o.Bounds().SegmentOverlaps(a, e)
	}
	cx, cy := toCell(a.X), toCell(a.Y)
	ex, ey := toCell(e.X), toCell(e.Y)
	n := int64(abs32(ex-cx)) + int64(abs32(ey-cy)) + 1
	if n > maxSegmentCells {
		return g.queryBox(geom.AABB{Min: a, Max: a}.Union(geom.AABB{Min: e, Max: e}), accept)
	}

	stepX, tMaxX, tDeltaX := ddaAxis(float64(a.X), float64(e.X-a.X), cx)
	stepY, tMaxY, tDeltaY := ddaAxis(float64(a.Y), float64(e.Y-a.Y), cy)

	stamp := g.nextStamp()
	var out []Object
	for i := int64(0); i < n; i++ {
		out = g.visit(cellKey{cx, cy}, stamp, accept, out)
		if cx == ex && cy == ey {
			break
		}
		if tMaxX < tMaxY {
			cx += stepX
			tMaxX += tDeltaX
		} else {
			cy += stepY
			tMaxY += tDeltaY
		}
	}
	return out
}

// ddaAxis returns the cell step direction, the parametric distance to the
// first cell boundary and the distance between boundaries along one axis.
func ddaAxis(origin, delta float64, cell int32) (int32, float64, float64) {
	switch {
	case delta > 0:
		return 1, ((float64(cell)+1)*CellSize - origin) / delta, CellSize / delta
	case delta < 0:
		return -1, (float64(cell)*CellSize - origin) / delta, -CellSize / delta
	default:
		return 0, math.Inf(1), math.Inf(1)
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
