package system

import (
	"time"

	coresys "github.com/survgo/server/internal/core/system"
	"github.com/survgo/server/internal/handler"
	"github.com/survgo/server/internal/net"
	"github.com/survgo/server/internal/net/packet"
	"go.uber.org/zap"
)

// Acceptor hands new and dead sessions to the game loop. *net.Server
// implements it.
type Acceptor interface {
	NewSessions() <-chan *net.Session
	DeadSessions() <-chan uint64
}

// InputSystem drains packet queues from all sessions and dispatches them
// through the packet registry. Phase 0 (Input).
type InputSystem struct {
	server     Acceptor
	registry   *packet.Registry
	store      *net.SessionStore
	deps       *handler.Deps
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(server Acceptor, registry *packet.Registry, store *net.SessionStore, deps *handler.Deps, maxPerTick int, log *zap.Logger) *InputSystem {
	if maxPerTick <= 0 {
		maxPerTick = 16
	}
	return &InputSystem{
		server:     server,
		registry:   registry,
		store:      store,
		deps:       deps,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Name() string { return "input" }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.server.NewSessions():
			s.store.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	// Closed sessions are found through IsClosed below; the channel only
	// needs draining.
	for {
		select {
		case <-s.server.DeadSessions():
		default:
			goto doneDead
		}
	}
doneDead:

	s.store.ForEach(func(sess *net.Session) {
		if sess.IsClosed() {
			s.disconnect(sess)
			return
		}
		s.drain(sess)
	})
}

// drain dispatches up to maxPerTick queued packets of one session.
func (s *InputSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
				s.log.Debug("dispatch error",
					zap.Uint64("session", sess.ID),
					zap.Error(err),
				)
			}
		default:
			return
		}
	}
}

func (s *InputSystem) disconnect(sess *net.Session) {
	handler.HandleDisconnect(sess.ID, s.deps)
	s.store.Remove(sess.ID)
	s.log.Info("session closed", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
}
