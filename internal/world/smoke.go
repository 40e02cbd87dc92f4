package world

import (
	"time"

	"github.com/survgo/server/internal/core/geom"
)

const smokeGrowTime = 2 * time.Second

// Smoke is a cloud that grows to full size and then expires.
type Smoke struct {
	Base
	rad    float32
	maxRad float32
	age    time.Duration
	life   time.Duration
}

func (w *World) AddSmoke(pos geom.Vec2, maxRad float32, life time.Duration) (*Smoke, error) {
	s := &Smoke{rad: maxRad * 0.1, maxRad: maxRad, life: life}
	if err := w.add(s, KindSmoke, pos); err != nil {
		return nil, err
	}
	w.Smokes.Set(s.id, s)
	return s, nil
}

func (s *Smoke) Bounds() geom.AABB {
	return geom.BoxAround(s.pos, s.rad, s.rad)
}

func (s *Smoke) Radius() float32 { return s.rad }

// Update grows the cloud and queues it for removal at the end of its life.
func (s *Smoke) Update(dt time.Duration) {
	if !s.Live() {
		return
	}
	s.age += dt
	if s.age >= s.life {
		s.w.MarkForDestruction(s)
		return
	}
	t := geom.Clamp(float32(s.age)/float32(smokeGrowTime), 0, 1)
	if setPart(&s.Base, &s.rad, geom.LerpF(s.maxRad*0.1, s.maxRad, t)) {
		s.regrid()
	}
}
