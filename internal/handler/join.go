package handler

import (
	"github.com/survgo/server/internal/net/packet"
	"github.com/survgo/server/internal/replication"
	"github.com/survgo/server/internal/world"
	"go.uber.org/zap"
)

const spawnTries = 64

// HandleJoin processes MsgJoin: [S name]. It spawns a player for the
// session, hands out the starting loadout and answers with MsgJoined.
// A spectating session keeps its replication slot and gets a player bound
// to it; a player left over from an earlier life is destroyed.
func HandleJoin(sess Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()
	if r.Err() != nil {
		return
	}
	w := deps.World

	pos, ok := w.FreePos(world.PlayerRadius, spawnTries)
	if !ok {
		pos = w.Center()
	}
	p, err := w.AddPlayer(name, pos)
	if err != nil {
		deps.Log.Error("spawn player failed", zap.Uint64("session", sess.SessionID()), zap.Error(err))
		sess.Close()
		return
	}
	giveLoadout(p, deps)

	c, exists := deps.Replicator.Client(sess.SessionID())
	if !exists {
		c = replication.NewClient(sess.SessionID(), sess, w.Center(), deps.ViewRadius)
		if err := deps.Replicator.AddClient(c); err != nil {
			deps.Log.Error("add replication client failed", zap.Error(err))
			w.MarkForDestruction(p)
			sess.Close()
			return
		}
	}
	if old := c.Player(); old != nil && old != p {
		// Dead player from the previous life.
		w.MarkForDestruction(old)
	}
	c.SetPlayer(p)
	c.Follow(nil)

	out := packet.NewWriterWithType(packet.MsgJoined)
	out.WriteH(uint16(p.ID()))
	out.WriteF32(w.Width())
	out.WriteF32(w.Height())
	sess.Send(out.Bytes())
	sess.SetState(packet.StatePlaying)

	deps.Log.Info("player joined",
		zap.Uint64("session", sess.SessionID()),
		zap.String("name", p.Name()),
		zap.Uint16("player", uint16(p.ID())),
	)
	deps.record("join", map[string]any{
		"session": sess.SessionID(),
		"player":  uint16(p.ID()),
		"name":    p.Name(),
	})
}

func giveLoadout(p *world.Player, deps *Deps) {
	if deps.Loadout == nil {
		return
	}
	table := deps.World.Defs().Loot
	for _, it := range deps.Loadout.StartingLoadout() {
		def, ok := table.Get(it.Name)
		if !ok {
			deps.Log.Warn("unknown loadout item", zap.String("item", it.Name))
			continue
		}
		p.Give(def, it.Count)
	}
}
