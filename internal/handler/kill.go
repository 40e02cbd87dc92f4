package handler

import (
	"github.com/survgo/server/internal/core/event"
	"github.com/survgo/server/internal/net/packet"
	"github.com/survgo/server/internal/replication"
	"github.com/survgo/server/internal/world"
	"go.uber.org/zap"
)

// SubscribeKills announces every kill to the match with MsgKill:
// [H killer id, 0 for the gas][H victim id][S killer name][S victim name].
// The victim's camera then follows the killer.
func SubscribeKills(deps *Deps) {
	event.Subscribe(deps.World.Bus(), func(e event.PlayerKilled) {
		w := deps.World
		victim, ok := w.Players.Get(e.VictimID)
		if !ok || !victim.Dead() {
			return
		}
		killer, _ := w.Players.Get(e.KillerID)

		out := packet.NewWriterWithType(packet.MsgKill)
		out.WriteH(uint16(e.KillerID))
		out.WriteH(uint16(e.VictimID))
		out.WriteS(nameOf(killer))
		out.WriteS(victim.Name())
		if deps.Peers != nil {
			deps.Peers.Broadcast(out.Bytes())
		}

		if killer != nil && killer != victim {
			deps.Replicator.Each(func(c *replication.Client) {
				if c.Player() == victim {
					c.Follow(killer)
				}
			})
		}

		deps.Log.Info("player killed",
			zap.String("victim", victim.Name()),
			zap.String("killer", nameOf(killer)),
			zap.Int("alive", w.AliveCount()),
		)
		deps.record("kill", map[string]any{
			"killer": uint16(e.KillerID),
			"victim": uint16(e.VictimID),
			"alive":  w.AliveCount(),
		})
	})
}

func nameOf(p *world.Player) string {
	if p == nil {
		return ""
	}
	return p.Name()
}
