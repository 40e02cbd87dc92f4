package system

import (
	"time"

	"github.com/survgo/server/internal/core/ecs"
	coresys "github.com/survgo/server/internal/core/system"
	"github.com/survgo/server/internal/world"
)

// GasSystem advances the gas circle and hurts players caught outside it.
// Phase 2 (Rules).
type GasSystem struct {
	world *world.World
}

func NewGasSystem(w *world.World) *GasSystem {
	return &GasSystem{world: w}
}

func (s *GasSystem) Phase() coresys.Phase { return coresys.PhaseRules }

func (s *GasSystem) Name() string { return "gas" }

func (s *GasSystem) Update(dt time.Duration) {
	gas := s.world.Gas
	gas.Update(dt)
	if gas.Mode() == world.GasInactive || gas.Damage() <= 0 {
		return
	}
	amount := gas.Damage() * float32(dt.Seconds())
	s.world.Players.Each(func(_ ecs.EntityID, p *world.Player) {
		if !p.Dead() && !gas.Inside(p.Pos()) {
			p.Damage(amount, 0)
		}
	})
}
