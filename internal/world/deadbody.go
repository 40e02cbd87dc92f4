package world

import "github.com/survgo/server/internal/core/geom"

const DeadBodyRadius float32 = 2

// DeadBody marks where a player died.
type DeadBody struct {
	Base
	owner uint16
}

func (w *World) AddDeadBody(owner *Player, pos geom.Vec2) (*DeadBody, error) {
	d := &DeadBody{owner: uint16(owner.ID())}
	if err := w.add(d, KindDeadBody, pos); err != nil {
		return nil, err
	}
	w.DeadBodies.Set(d.id, d)
	return d, nil
}

func (d *DeadBody) Bounds() geom.AABB {
	return geom.BoxAround(d.pos, DeadBodyRadius, DeadBodyRadius)
}

func (d *DeadBody) Owner() uint16 { return d.owner }
