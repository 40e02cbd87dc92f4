package system

import (
	"time"

	coresys "github.com/survgo/server/internal/core/system"
	"github.com/survgo/server/internal/world"
)

// ReapSystem destroys everything queued for destruction during the tick.
// Phase 6 (Reap).
type ReapSystem struct {
	world *world.World
}

func NewReapSystem(w *world.World) *ReapSystem {
	return &ReapSystem{world: w}
}

func (s *ReapSystem) Phase() coresys.Phase { return coresys.PhaseReap }

func (s *ReapSystem) Name() string { return "reap" }

func (s *ReapSystem) Update(_ time.Duration) {
	s.world.FlushDestroyQueue()
}
