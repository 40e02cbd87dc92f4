package world

import (
	"math"
	"time"

	"github.com/survgo/server/internal/core/geom"
	"github.com/survgo/server/internal/data"
)

const (
	LootRadius    float32 = 1
	LootPushSpeed float32 = 6
	lootFriction          = 3.0 // velocity decay rate per second
	lootRestSpeed float32 = 0.05
)

// Loot is an item lying on the ground. It slides with friction when pushed.
type Loot struct {
	Base
	def   *data.LootDef
	count int
	vel   geom.Vec2
}

// AddLoot drops count items of type def at pos.
func (w *World) AddLoot(def *data.LootDef, count int, pos geom.Vec2) (*Loot, error) {
	if count <= 0 {
		count = 1
	}
	l := &Loot{def: def, count: count}
	if err := w.add(l, KindLoot, w.ClampToMap(pos, LootRadius)); err != nil {
		return nil, err
	}
	w.Loot.Set(l.id, l)
	return l, nil
}

func (l *Loot) Bounds() geom.AABB {
	return geom.BoxAround(l.pos, LootRadius, LootRadius)
}

func (l *Loot) Def() *data.LootDef { return l.def }
func (l *Loot) Count() int         { return l.count }
func (l *Loot) Moving() bool       { return !l.vel.IsZero() }

func (l *Loot) SetCount(n int) {
	setFull(&l.Base, &l.count, n)
}

// Push adds velocity to the loot.
func (l *Loot) Push(v geom.Vec2) {
	if v.IsFinite() {
		l.vel = l.vel.Add(v)
	}
}

// Update slides moving loot and settles it once slow enough.
func (l *Loot) Update(dt time.Duration) {
	if l.vel.IsZero() || !l.Live() {
		return
	}
	sec := float32(dt.Seconds())
	next := l.pos.Add(l.vel.Mul(sec))
	next = l.w.pushOutOfObstacles(l.w.ClampToMap(next, LootRadius), LootRadius)
	l.moveTo(next)

	l.vel = l.vel.Mul(float32(math.Exp(-lootFriction * dt.Seconds())))
	if l.vel.LenSq() < lootRestSpeed*lootRestSpeed {
		l.vel = geom.Vec2{}
	}
}
