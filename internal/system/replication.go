package system

import (
	"time"

	coresys "github.com/survgo/server/internal/core/system"
	"github.com/survgo/server/internal/handler"
	"github.com/survgo/server/internal/net"
	"github.com/survgo/server/internal/replication"
	"github.com/survgo/server/internal/world"
	"go.uber.org/zap"
)

// ReplicationSystem runs a replication pass every interval ticks, clears
// the world's dirty state afterwards and hands every buffered packet to the
// socket writers. Phase 7 (Output).
type ReplicationSystem struct {
	world    *world.World
	rep      *replication.Replicator
	store    *net.SessionStore
	deps     *handler.Deps
	interval int
	tick     func() uint64
	count    int
	log      *zap.Logger
}

func NewReplicationSystem(w *world.World, rep *replication.Replicator, store *net.SessionStore, deps *handler.Deps, interval int, tick func() uint64, log *zap.Logger) *ReplicationSystem {
	if interval <= 0 {
		interval = 1
	}
	return &ReplicationSystem{
		world:    w,
		rep:      rep,
		store:    store,
		deps:     deps,
		interval: interval,
		tick:     tick,
		log:      log,
	}
}

func (s *ReplicationSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *ReplicationSystem) Name() string { return "replication" }

func (s *ReplicationSystem) Update(_ time.Duration) {
	s.count++
	if s.count >= s.interval {
		s.count = 0
		s.pass()
	}
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

func (s *ReplicationSystem) pass() {
	for _, id := range s.rep.Pass(s.tick()) {
		s.log.Warn("dropping client after repeated replication failures", zap.Uint64("client", id))
		if sess := s.store.Get(id); sess != nil {
			// InputSystem finishes the cleanup next tick.
			sess.Close()
			continue
		}
		handler.HandleDisconnect(id, s.deps)
	}
	// Every client has been served; dirty markers and quarantined ids can go.
	s.world.Flush()
}
