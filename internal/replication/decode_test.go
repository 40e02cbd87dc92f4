package replication

import (
	"fmt"

	"github.com/survgo/server/internal/core/ecs"
	"github.com/survgo/server/internal/net/packet"
	"github.com/survgo/server/internal/world"
)

// ObjectRecord is one object section of an update with its payload kept
// opaque.
type ObjectRecord struct {
	Kind    world.Kind // zero for part records
	ID      ecs.EntityID
	Payload []byte
}

// Update is the object-level view of a MsgUpdate. The per-player and gas
// sections after the active player id are left in Rest.
type Update struct {
	Flags        uint16
	Deleted      []ecs.EntityID
	Full         []ObjectRecord
	Part         []ObjectRecord
	ActivePlayer ecs.EntityID
	Rest         []byte
}

func (u *Update) Resync() bool { return u.Flags&packet.UpdResync != 0 }

// HasFull reports whether id was sent in full.
func (u *Update) HasFull(id ecs.EntityID) bool {
	for _, o := range u.Full {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (u *Update) HasPart(id ecs.EntityID) bool {
	for _, o := range u.Part {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (u *Update) HasDeleted(id ecs.EntityID) bool {
	for _, d := range u.Deleted {
		if d == id {
			return true
		}
	}
	return false
}

// ParseUpdate splits a MsgUpdate into its object sections.
func ParseUpdate(data []byte) (*Update, error) {
	r := packet.NewReader(data)
	if r.Type() != packet.MsgUpdate {
		return nil, fmt.Errorf("parse update: message type %d", r.Type())
	}
	u := &Update{Flags: r.ReadH()}
	if u.Flags&packet.UpdDeleted != 0 {
		n := int(r.ReadH())
		for i := 0; i < n && r.Err() == nil; i++ {
			u.Deleted = append(u.Deleted, ecs.EntityID(r.ReadH()))
		}
	}
	if u.Flags&packet.UpdFull != 0 {
		n := int(r.ReadH())
		for i := 0; i < n && r.Err() == nil; i++ {
			kind := world.Kind(r.ReadC())
			id := ecs.EntityID(r.ReadH())
			size := int(r.ReadH())
			u.Full = append(u.Full, ObjectRecord{Kind: kind, ID: id, Payload: r.ReadBytes(size)})
		}
	}
	n := int(r.ReadH())
	for i := 0; i < n && r.Err() == nil; i++ {
		id := ecs.EntityID(r.ReadH())
		size := int(r.ReadH())
		u.Part = append(u.Part, ObjectRecord{ID: id, Payload: r.ReadBytes(size)})
	}
	if u.Flags&packet.UpdActivePlayer != 0 {
		u.ActivePlayer = ecs.EntityID(r.ReadH())
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("parse update: %w", err)
	}
	u.Rest = r.ReadBytes(r.Remaining())
	return u, nil
}
