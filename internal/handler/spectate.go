package handler

import (
	"github.com/survgo/server/internal/net/packet"
	"github.com/survgo/server/internal/replication"
	"go.uber.org/zap"
)

// HandleSpectate processes MsgSpectate (no body). A fresh session gets a
// camera over the map centre. A dead player follows whoever killed them;
// a live player cannot spectate.
func HandleSpectate(sess Session, _ *packet.Reader, deps *Deps) {
	w := deps.World
	c, ok := deps.Replicator.Client(sess.SessionID())
	if !ok {
		c = replication.NewClient(sess.SessionID(), sess, w.Center(), deps.ViewRadius)
		if err := deps.Replicator.AddClient(c); err != nil {
			deps.Log.Error("add replication client failed", zap.Error(err))
			return
		}
	}

	if p := c.Player(); p != nil && p.Live() {
		if !p.Dead() {
			return
		}
		if killer, ok := w.Players.Get(p.LastHit()); ok && !killer.Dead() {
			c.SetCamera(p.Pos(), deps.ViewRadius)
			c.Follow(killer)
		}
	}
	sess.SetState(packet.StateSpectating)
	deps.Log.Debug("session spectating", zap.Uint64("session", sess.SessionID()))
}
