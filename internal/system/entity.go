package system

import (
	"time"

	"github.com/survgo/server/internal/core/ecs"
	coresys "github.com/survgo/server/internal/core/system"
	"github.com/survgo/server/internal/world"
	"go.uber.org/zap"
)

// EntitySystem runs player controls and sliding loot. Phase 3 (Entities).
type EntitySystem struct {
	world *world.World
	log   *zap.Logger
}

func NewEntitySystem(w *world.World, log *zap.Logger) *EntitySystem {
	return &EntitySystem{world: w, log: log}
}

func (s *EntitySystem) Phase() coresys.Phase { return coresys.PhaseEntities }

func (s *EntitySystem) Name() string { return "entities" }

func (s *EntitySystem) Update(dt time.Duration) {
	coresys.SafeEach(s.world.Players, s.log, s.Name(), func(_ ecs.EntityID, p *world.Player) {
		p.Update(dt)
	})
	coresys.SafeEach(s.world.Loot, s.log, s.Name(), func(_ ecs.EntityID, l *world.Loot) {
		if l.Moving() {
			l.Update(dt)
		}
	})
}

// ProjectileSystem moves bullets and resolves their hits.
// Phase 4 (Projectiles).
type ProjectileSystem struct {
	world *world.World
	log   *zap.Logger
}

func NewProjectileSystem(w *world.World, log *zap.Logger) *ProjectileSystem {
	return &ProjectileSystem{world: w, log: log}
}

func (s *ProjectileSystem) Phase() coresys.Phase { return coresys.PhaseProjectiles }

func (s *ProjectileSystem) Name() string { return "projectiles" }

func (s *ProjectileSystem) Update(dt time.Duration) {
	coresys.SafeEach(s.world.Projectiles, s.log, s.Name(), func(_ ecs.EntityID, pr *world.Projectile) {
		pr.Update(dt)
	})
}

// EffectSystem grows and expires smoke clouds. Phase 5 (Effects).
type EffectSystem struct {
	world *world.World
	log   *zap.Logger
}

func NewEffectSystem(w *world.World, log *zap.Logger) *EffectSystem {
	return &EffectSystem{world: w, log: log}
}

func (s *EffectSystem) Phase() coresys.Phase { return coresys.PhaseEffects }

func (s *EffectSystem) Name() string { return "effects" }

func (s *EffectSystem) Update(dt time.Duration) {
	coresys.SafeEach(s.world.Smokes, s.log, s.Name(), func(_ ecs.EntityID, sm *world.Smoke) {
		sm.Update(dt)
	})
}
