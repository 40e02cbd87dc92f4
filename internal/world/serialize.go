package world

import (
	"math"
	"slices"

	"github.com/survgo/server/internal/core/geom"
	"github.com/survgo/server/internal/net/packet"
)

func (w *World) writePos(pw *packet.Writer, p geom.Vec2) {
	pw.WriteVec(p, geom.Vec2{}, geom.V(w.cfg.Width, w.cfg.Height), packet.PosBits)
}

// WriteFull writes a complete object: kind, id, payload length and the part
// fields followed by the full fields. The layout is the same for every
// client.
func (w *World) WriteFull(pw *packet.Writer, o Object) {
	pw.WriteC(byte(o.Kind()))
	pw.WriteH(uint16(o.ID()))
	off := pw.ReserveH()
	start := pw.Len()
	w.writePart(pw, o)
	w.writeFull(pw, o)
	pw.PatchH(off, uint16(pw.Len()-start))
}

// WritePart writes id, payload length and the frequently changing fields.
func (w *World) WritePart(pw *packet.Writer, o Object) {
	pw.WriteH(uint16(o.ID()))
	off := pw.ReserveH()
	start := pw.Len()
	w.writePart(pw, o)
	pw.PatchH(off, uint16(pw.Len()-start))
}

func (w *World) writePart(pw *packet.Writer, o Object) {
	w.writePos(pw, o.Pos())
	switch o.Kind() {
	case KindPlayer:
		pw.WriteUnitVec(o.(*Player).dir, packet.DirBits)
	case KindObstacle:
		ob := o.(*Obstacle)
		pw.WriteC(ob.ori)
		pw.WriteFloat(ob.scale, 0.125, 2.5, 8)
	case KindSmoke:
		pw.WriteFloat(o.(*Smoke).rad, 0, 16, 8)
	case KindLoot, KindDeadBody, KindProjectile:
	default:
		w.check.Violation("write part of unknown kind", zapID(o.ID()))
	}
}

func (w *World) writeFull(pw *packet.Writer, o Object) {
	switch o.Kind() {
	case KindPlayer:
		p := o.(*Player)
		pw.WriteS(p.name)
		pw.WriteC(p.outfit)
		pw.WriteC(p.helmet)
		pw.WriteC(p.chest)
		pw.WriteC(p.backpack)
		pw.WriteH(p.activeWeapon)
		pw.WriteC(p.layer)
		pw.WriteFlags(p.dead)
	case KindObstacle:
		ob := o.(*Obstacle)
		pw.WriteH(ob.def.ID)
		pw.WriteFlags(ob.dead, ob.def.Destructible)
		pw.WriteFloat(ob.HealthFraction(), 0, 1, 8)
		pw.WriteC(ob.layer)
	case KindLoot:
		l := o.(*Loot)
		pw.WriteH(l.def.ID)
		pw.WriteH(uint16(min(l.count, math.MaxUint16)))
	case KindDeadBody:
		pw.WriteH(o.(*DeadBody).owner)
	case KindProjectile:
		pr := o.(*Projectile)
		pw.WriteH(pr.def.ID)
		pw.WriteH(uint16(pr.owner))
		w.writePos(pw, pr.start)
		pw.WriteUnitVec(pr.dir, 16)
	case KindSmoke:
	default:
		w.check.Violation("write full of unknown kind", zapID(o.ID()))
	}
}

// WriteLocal writes the state only the controlling client receives.
func (w *World) WriteLocal(pw *packet.Writer, p *Player) {
	pw.WriteFloat(p.health, 0, MaxHealth, 8)
	pw.WriteFloat(p.boost, 0, MaxBoost, 8)
	pw.WriteC(uint8(min(p.zoom, 255)))
	pw.WriteC(uint8(p.curSlot))
	for _, s := range p.weapons {
		var id uint16
		if s.gun != nil {
			id = s.gun.ID
		}
		pw.WriteH(id)
		pw.WriteC(uint8(min(s.clip, 255)))
	}
	pw.WriteFlags(p.reloading > 0, p.healing > 0)
	var scope uint16
	if p.scope != nil {
		scope = p.scope.ID
	}
	pw.WriteH(scope)
	writeCounts(pw, p.ammo)
	writeCounts(pw, p.heals)
	pw.WriteC(uint8(min(p.kills, 255)))
}

func writeCounts(pw *packet.Writer, items map[uint16]int) {
	ids := make([]uint16, 0, len(items))
	for id, n := range items {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	pw.WriteC(uint8(min(len(ids), 255)))
	for i, id := range ids {
		if i == 255 {
			break
		}
		pw.WriteH(id)
		pw.WriteH(uint16(min(items[id], math.MaxUint16)))
	}
}

// WriteGas writes the full gas state.
func (w *World) WriteGas(pw *packet.Writer) {
	g := w.Gas
	pw.WriteC(byte(g.mode))
	pw.WriteF32(float32(g.duration.Seconds()))
	w.writePos(pw, g.posOld)
	w.writePos(pw, g.posNew)
	pw.WriteF32(g.radOld)
	pw.WriteF32(g.radNew)
}

// WriteGasProgress writes how far the current gas stage has run.
func (w *World) WriteGasProgress(pw *packet.Writer) {
	pw.WriteFloat(w.Gas.Progress(), 0, 1, 8)
}
