package world

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/survgo/server/internal/core/assert"
	"github.com/survgo/server/internal/core/ecs"
	"github.com/survgo/server/internal/core/event"
	"github.com/survgo/server/internal/core/geom"
	"github.com/survgo/server/internal/data"
	"go.uber.org/zap"
)

// Config sizes the playable area.
type Config struct {
	Width  float32
	Height float32
	Seed   int64
}

// Defs bundles the data tables the world reads rule content from.
type Defs struct {
	Obstacles *data.ObstacleTable
	Loot      *data.LootTable
}

// World owns every simulated object together with the registry that
// numbers them and the grid that indexes them. There is one World per match
// and it is touched only by the game loop goroutine.
type World struct {
	cfg   Config
	defs  Defs
	log   *zap.Logger
	check *assert.Checker
	bus   *event.Bus
	rng   *rand.Rand

	reg  *ecs.Registry[Object]
	grid *Grid

	Players     *ecs.Store[Player]
	Obstacles   *ecs.Store[Obstacle]
	Loot        *ecs.Store[Loot]
	DeadBodies  *ecs.Store[DeadBody]
	Projectiles *ecs.Store[Projectile]
	Smokes      *ecs.Store[Smoke]

	destroyQueue []Object

	Gas *Gas

	alive      int
	aliveDirty bool
}

func New(cfg Config, defs Defs, bus *event.Bus, check *assert.Checker, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	w := &World{
		cfg:         cfg,
		defs:        defs,
		log:         log,
		check:       check,
		bus:         bus,
		rng:         rand.New(rand.NewSource(seed)),
		reg:         ecs.NewRegistry[Object](check),
		grid:        NewGrid(check),
		Players:     ecs.NewStore[Player](),
		Obstacles:   ecs.NewStore[Obstacle](),
		Loot:        ecs.NewStore[Loot](),
		DeadBodies:  ecs.NewStore[DeadBody](),
		Projectiles: ecs.NewStore[Projectile](),
		Smokes:      ecs.NewStore[Smoke](),
	}
	w.reg.Track(w.Players)
	w.reg.Track(w.Obstacles)
	w.reg.Track(w.Loot)
	w.reg.Track(w.DeadBodies)
	w.reg.Track(w.Projectiles)
	w.reg.Track(w.Smokes)
	w.Gas = newGas(w.Center(), w.cfg.Width, w.cfg.Height, w.rng, log)
	return w
}

func zapID(id ecs.EntityID) zap.Field {
	return zap.Uint16("id", uint16(id))
}

func (w *World) Width() float32  { return w.cfg.Width }
func (w *World) Height() float32 { return w.cfg.Height }
func (w *World) Center() geom.Vec2 {
	return geom.V(w.cfg.Width/2, w.cfg.Height/2)
}

func (w *World) Grid() *Grid                     { return w.grid }
func (w *World) Registry() *ecs.Registry[Object] { return w.reg }
func (w *World) Bus() *event.Bus                 { return w.bus }
func (w *World) Rand() *rand.Rand                { return w.rng }
func (w *World) Defs() Defs                      { return w.defs }
func (w *World) Checker() *assert.Checker        { return w.check }

// Get resolves a live object by id.
func (w *World) Get(id ecs.EntityID) (Object, bool) {
	return w.reg.Get(id)
}

func (w *World) IsFullDirty(id ecs.EntityID) bool { return w.reg.IsFullDirty(id) }
func (w *World) IsPartDirty(id ecs.EntityID) bool { return w.reg.IsPartDirty(id) }

// AliveCount returns the number of players that are not dead.
func (w *World) AliveCount() int { return w.alive }

// AliveDirty reports whether the alive count changed since the last Flush.
func (w *World) AliveDirty() bool { return w.aliveDirty }

func (w *World) setAlive(n int) {
	if n < 0 {
		n = 0
	}
	if n != w.alive {
		w.alive = n
		w.aliveDirty = true
	}
}

// ClampToMap keeps a circle of radius r inside the playable area.
func (w *World) ClampToMap(p geom.Vec2, r float32) geom.Vec2 {
	return geom.V(
		geom.Clamp(p.X, r, w.cfg.Width-r),
		geom.Clamp(p.Y, r, w.cfg.Height-r),
	)
}

// add registers o and indexes it in the grid.
func (w *World) add(o Object, kind Kind, pos geom.Vec2) error {
	b := o.base()
	if !pos.IsFinite() {
		return fmt.Errorf("add %s: non-finite position", kind)
	}
	id, err := w.reg.Register(o)
	if err != nil {
		return fmt.Errorf("add %s: %w", kind, err)
	}
	b.id = id
	b.kind = kind
	b.pos = pos
	b.w = w
	b.self = o
	w.grid.Insert(o)
	return nil
}

// Move teleports o to p and keeps the grid in sync. Returns false when the
// position did not change.
func (w *World) Move(o Object, p geom.Vec2) bool {
	if !o.base().Live() {
		return w.check.Violation("move of dead object", zapID(o.ID()))
	}
	return o.base().moveTo(p)
}

// Destroy removes o from the registry, every store and the grid at once.
func (w *World) Destroy(o Object) bool {
	b := o.base()
	if !b.Live() {
		return w.check.Violation("destroy of dead object", zapID(b.id), zap.Stringer("kind", b.kind))
	}
	if b.inGrid {
		w.grid.Remove(o)
	}
	w.reg.Unregister(b.id)
	b.destroyed = true
	if p, ok := o.(*Player); ok && !p.dead {
		w.setAlive(w.alive - 1)
	}
	return true
}

// MarkForDestruction queues o for removal in the reap phase. Queuing twice
// is a no-op.
func (w *World) MarkForDestruction(o Object) {
	b := o.base()
	if b.queued || !b.Live() {
		return
	}
	b.queued = true
	w.destroyQueue = append(w.destroyQueue, o)
}

// FlushDestroyQueue destroys every queued object and returns how many were
// removed.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for i, o := range w.destroyQueue {
		if o.base().Live() && w.Destroy(o) {
			n++
		}
		w.destroyQueue[i] = nil
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}

// Flush clears every dirty marker and releases quarantined ids. It must run
// only after all clients were served in the replication pass.
func (w *World) Flush() {
	w.reg.Flush()
	w.Gas.clearDirty()
	w.aliveDirty = false
	w.Players.Each(func(_ ecs.EntityID, p *Player) {
		p.localDirty = false
	})
}

// FreePos returns a random position where a circle of radius r overlaps no
// collidable obstacle. ok is false when no spot was found.
func (w *World) FreePos(r float32, tries int) (geom.Vec2, bool) {
	for i := 0; i < tries; i++ {
		p := geom.V(
			r+w.rng.Float32()*(w.cfg.Width-2*r),
			r+w.rng.Float32()*(w.cfg.Height-2*r),
		)
		if !w.blocked(geom.Circle(p, r)) {
			return p, true
		}
	}
	return geom.Vec2{}, false
}

func (w *World) blocked(col geom.Collider) bool {
	for _, o := range w.grid.IntersectCollider(col) {
		if ob, ok := o.(*Obstacle); ok && ob.Collidable() && ob.collider.Intersects(col) {
			return true
		}
	}
	return false
}

// SpawnLoot drops count items of def around pos with a small outward push.
func (w *World) SpawnLoot(def *data.LootDef, count int, pos geom.Vec2) (*Loot, error) {
	l, err := w.AddLoot(def, count, pos)
	if err != nil {
		return nil, err
	}
	angle := w.rng.Float32() * 2 * 3.14159265
	l.Push(geom.V(1, 0).Rotate(angle).Mul(LootPushSpeed))
	return l, nil
}
