package handler

import (
	"github.com/survgo/server/internal/net/packet"
	"github.com/survgo/server/internal/replication"
	"github.com/survgo/server/internal/scripting"
	"github.com/survgo/server/internal/world"
	"go.uber.org/zap"
)

// Session is the part of a connection the handlers touch. *net.Session
// implements it.
type Session interface {
	SessionID() uint64
	State() packet.SessionState
	SetState(packet.SessionState)
	Send(data []byte)
	Close()
}

// Broadcaster delivers a packet to every session in the match.
type Broadcaster interface {
	Broadcast(data []byte)
}

// LoadoutSource supplies the kit given to joining players.
type LoadoutSource interface {
	StartingLoadout() []scripting.LoadoutItem
}

// EventRecorder receives match events for the replay log.
type EventRecorder interface {
	RecordEvent(tick uint64, typ string, fields map[string]any)
}

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	World      *world.World
	Replicator *replication.Replicator
	Peers      Broadcaster
	Loadout    LoadoutSource // optional
	Events     EventRecorder // optional
	Tick       func() uint64
	ViewRadius float32 // spectator camera radius
	Log        *zap.Logger
}

func (d *Deps) tick() uint64 {
	if d.Tick == nil {
		return 0
	}
	return d.Tick()
}

func (d *Deps) record(typ string, fields map[string]any) {
	if d.Events != nil {
		d.Events.RecordEvent(d.tick(), typ, fields)
	}
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.MsgJoin,
		[]packet.SessionState{packet.StateConnected, packet.StateSpectating},
		func(sess any, r *packet.Reader) {
			HandleJoin(sess.(Session), r, deps)
		},
	)
	reg.Register(packet.MsgInput,
		[]packet.SessionState{packet.StatePlaying},
		func(sess any, r *packet.Reader) {
			HandleInput(sess.(Session), r, deps)
		},
	)
	reg.Register(packet.MsgSpectate,
		[]packet.SessionState{packet.StateConnected, packet.StatePlaying},
		func(sess any, r *packet.Reader) {
			HandleSpectate(sess.(Session), r, deps)
		},
	)
	reg.Register(packet.MsgPing,
		[]packet.SessionState{packet.StateConnected, packet.StatePlaying, packet.StateSpectating},
		func(sess any, r *packet.Reader) {
			HandlePing(sess.(Session), r, deps)
		},
	)
}
