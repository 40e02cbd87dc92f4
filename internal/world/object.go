package world

import (
	"github.com/survgo/server/internal/core/ecs"
	"github.com/survgo/server/internal/core/geom"
)

// Kind tags the closed set of simulated object kinds. The value is written
// on the wire in front of every full object.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPlayer
	KindObstacle
	KindLoot
	KindDeadBody
	KindProjectile
	KindSmoke
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindObstacle:
		return "obstacle"
	case KindLoot:
		return "loot"
	case KindDeadBody:
		return "deadbody"
	case KindProjectile:
		return "projectile"
	case KindSmoke:
		return "smoke"
	default:
		return "invalid"
	}
}

// Object is implemented by every simulated entity through an embedded Base.
type Object interface {
	ID() ecs.EntityID
	Kind() Kind
	Pos() geom.Vec2
	Bounds() geom.AABB
	base() *Base
}

// Base carries the fields every object shares: identity, position and its
// bookkeeping in the grid and registry. Accessed only from the game loop.
type Base struct {
	id   ecs.EntityID
	kind Kind
	pos  geom.Vec2
	w    *World
	self Object

	cells  []cellKey
	stamp  uint32
	inGrid bool

	queued    bool // waiting in the destroy queue
	destroyed bool
}

func (b *Base) ID() ecs.EntityID { return b.id }
func (b *Base) Kind() Kind       { return b.kind }
func (b *Base) Pos() geom.Vec2   { return b.pos }
func (b *Base) base() *Base      { return b }

// Live reports whether the object is registered and not yet destroyed.
func (b *Base) Live() bool { return b.w != nil && !b.destroyed }

func (b *Base) markPart() {
	if b.Live() {
		b.w.reg.MarkPart(b.id)
	}
}

func (b *Base) markFull() {
	if b.Live() {
		b.w.reg.MarkFull(b.id)
	}
}

// setPart assigns v to a frequently-changing field and marks the object
// part-dirty. Equal values are not written and do not mark.
func setPart[T comparable](b *Base, field *T, v T) bool {
	if *field == v {
		return false
	}
	*field = v
	b.markPart()
	return true
}

// setFull is setPart for rarely-changing fields; a change forces a full
// retransmit.
func setFull[T comparable](b *Base, field *T, v T) bool {
	if *field == v {
		return false
	}
	*field = v
	b.markFull()
	return true
}

// moveTo changes the position and keeps the grid in sync.
func (b *Base) moveTo(p geom.Vec2) bool {
	if !p.IsFinite() {
		if b.w != nil {
			b.w.check.Violation("non-finite position", zapID(b.id))
		}
		return false
	}
	if !setPart(b, &b.pos, p) {
		return false
	}
	b.regrid()
	return true
}

// regrid re-buckets the object after its bounds changed.
func (b *Base) regrid() {
	if b.inGrid && b.w != nil {
		b.w.grid.Update(b.self)
	}
}
