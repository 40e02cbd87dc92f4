package world

import (
	"github.com/survgo/server/internal/core/event"
	"go.uber.org/zap"
)

// SubscribeEvents wires the world's own reactions to gameplay events: a
// killed player leaves a body and scatters its inventory, a broken obstacle
// drops its loot.
func (w *World) SubscribeEvents() {
	event.Subscribe(w.bus, func(e event.PlayerKilled) {
		p, ok := w.Players.Get(e.VictimID)
		if !ok || !p.dead {
			return
		}
		if _, err := w.AddDeadBody(p, e.Pos); err != nil {
			w.log.Warn("spawn dead body failed", zapID(e.VictimID), zap.Error(err))
		}
		p.DropInventory()
		if killer, ok := w.Players.Get(e.KillerID); ok && killer != p {
			killer.kills++
			killer.setLocal()
		}
	})
	event.Subscribe(w.bus, func(e event.ObstacleDestroyed) {
		if o, ok := w.Obstacles.Get(e.ObstacleID); ok && o.dead {
			o.DropLoot()
		}
	})
}
