package world

import (
	"github.com/survgo/server/internal/core/event"
	"github.com/survgo/server/internal/core/geom"
	"github.com/survgo/server/internal/data"
)

// Obstacle is a static map feature. Destructible obstacles shrink while
// damaged and stay on the map as dead rubble once broken.
type Obstacle struct {
	Base
	def *data.ObstacleDef

	// part
	ori   uint8 // quarter turns
	scale float32

	// full
	dead   bool
	health float32
	layer  uint8

	initScale float32
	collider  geom.Collider
}

// AddObstacle places an obstacle of type def.
func (w *World) AddObstacle(def *data.ObstacleDef, pos geom.Vec2, ori uint8, scale float32) (*Obstacle, error) {
	if scale <= 0 {
		scale = 1
	}
	o := &Obstacle{
		def:       def,
		ori:       ori % 4,
		scale:     scale,
		health:    def.Health,
		initScale: scale,
	}
	o.pos = pos
	o.collider = o.shape()
	if err := w.add(o, KindObstacle, pos); err != nil {
		return nil, err
	}
	w.Obstacles.Set(o.id, o)
	return o, nil
}

// shape builds the world-space collider for the current pos, ori and scale.
func (o *Obstacle) shape() geom.Collider {
	c := o.def.Collider
	var local geom.Collider
	if c.Type == "circle" {
		local = geom.Circle(geom.Vec2{}, c.Radius)
	} else {
		hw, hh := c.HalfWidth, c.HalfHeight
		if o.ori%2 == 1 {
			hw, hh = hh, hw
		}
		local = geom.Box(geom.BoxAround(geom.Vec2{}, hw, hh))
	}
	return local.Scale(o.scale).Translate(o.pos)
}

func (o *Obstacle) Bounds() geom.AABB { return o.collider.Bounds() }

func (o *Obstacle) Def() *data.ObstacleDef  { return o.def }
func (o *Obstacle) Dead() bool              { return o.dead }
func (o *Obstacle) Scale() float32          { return o.scale }
func (o *Obstacle) Collider() geom.Collider { return o.collider }
func (o *Obstacle) Destructible() bool      { return o.def.Destructible }
func (o *Obstacle) Collidable() bool        { return !o.dead && o.def.IsCollidable() }

// HealthFraction returns remaining health in [0, 1].
func (o *Obstacle) HealthFraction() float32 {
	if o.def.Health <= 0 {
		return 0
	}
	return geom.Clamp(o.health/o.def.Health, 0, 1)
}

// SetScale resizes the obstacle and re-buckets it in the grid.
func (o *Obstacle) SetScale(s float32) {
	if !setPart(&o.Base, &o.scale, s) {
		return
	}
	o.collider = o.shape()
	o.regrid()
}

// Damage wears the obstacle down. At zero health it dies and an
// ObstacleDestroyed event is emitted.
func (o *Obstacle) Damage(amount float32) {
	if o.dead || !o.def.Destructible || amount <= 0 || !o.Live() {
		return
	}
	setFull(&o.Base, &o.health, max(0, o.health-amount))
	t := o.HealthFraction()
	o.SetScale(geom.LerpF(o.def.Scale.Destroy, o.initScale, t))
	if o.health > 0 {
		return
	}
	setFull(&o.Base, &o.dead, true)
	event.Emit(o.w.bus, event.ObstacleDestroyed{
		ObstacleID: o.id,
		TypeName:   o.def.Name,
		Pos:        o.pos,
		Layer:      o.layer,
	})
}

// DropLoot rolls the obstacle's loot table.
func (o *Obstacle) DropLoot() int {
	n := 0
	for _, drop := range o.def.Loot {
		if drop.Chance > 0 && o.w.rng.Float64() >= drop.Chance {
			continue
		}
		def, ok := o.w.defs.Loot.Get(drop.Name)
		if !ok {
			continue
		}
		count := drop.Count
		if count <= 0 {
			count = 1
		}
		if _, err := o.w.SpawnLoot(def, count, o.pos); err == nil {
			n++
		}
	}
	return n
}
