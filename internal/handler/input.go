package handler

import (
	"github.com/survgo/server/internal/net/packet"
	"github.com/survgo/server/internal/world"
)

// HandleInput processes MsgInput:
// [C seq][C move bits][C aim (unit vector)][flags shoot, reload, interact]
// [C equip slot, 0xFF keeps the current one][H heal item id, 0 for none].
// Values are clamped by the player, not here.
func HandleInput(sess Session, r *packet.Reader, deps *Deps) {
	in := world.Input{
		Seq:  r.ReadC(),
		Move: r.ReadC(),
		Aim:  r.ReadUnitVec(packet.DirBits),
	}
	flags := r.ReadFlags(3)
	in.EquipSlot = int8(r.ReadC())
	in.UseHeal = r.ReadH()
	if r.Err() != nil {
		return
	}
	in.Shoot, in.Reload, in.Interact = flags[0], flags[1], flags[2]

	p := controlled(sess, deps)
	if p == nil {
		return
	}
	p.SetInput(in)
}

// controlled returns the live player driven by sess, or nil.
func controlled(sess Session, deps *Deps) *world.Player {
	c, ok := deps.Replicator.Client(sess.SessionID())
	if !ok {
		return nil
	}
	p := c.Player()
	if p == nil || !p.Live() || p.Dead() {
		return nil
	}
	return p
}
