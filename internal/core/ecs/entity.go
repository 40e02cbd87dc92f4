package ecs

import "errors"

// EntityID is the network object id of a simulated entity. It is written as
// 16 bits on the wire; 0 is never allocated.
type EntityID uint16

const MaxEntities = 1<<16 - 1

func (id EntityID) IsZero() bool { return id == 0 }

var ErrPoolExhausted = errors.New("ecs: entity id space exhausted")

// EntityPool hands out ids with a FIFO free list. Destroyed ids sit in
// quarantine until ReleaseQuarantined is called at the end of a replication
// flush, so an id is never reused in the tick it was freed.
type EntityPool struct {
	alive      []bool // indexed by id
	freeList   []EntityID
	freeHead   int
	quarantine []EntityID
	nextID     EntityID
	limit      int
	live       int
}

func NewEntityPool() *EntityPool {
	return newEntityPool(MaxEntities)
}

func newEntityPool(limit int) *EntityPool {
	return &EntityPool{
		alive:      make([]bool, 1, 1024),
		freeList:   make([]EntityID, 0, 256),
		quarantine: make([]EntityID, 0, 64),
		nextID:     1,
		limit:      limit,
	}
}

func (p *EntityPool) Create() (EntityID, error) {
	if p.freeHead < len(p.freeList) {
		id := p.freeList[p.freeHead]
		p.freeHead++
		if p.freeHead == len(p.freeList) {
			p.freeList = p.freeList[:0]
			p.freeHead = 0
		}
		p.alive[id] = true
		p.live++
		return id, nil
	}
	if int(p.nextID) > p.limit || p.nextID == 0 {
		return 0, ErrPoolExhausted
	}
	id := p.nextID
	p.nextID++
	p.alive = append(p.alive, true)
	p.live++
	return id, nil
}

func (p *EntityPool) Alive(id EntityID) bool {
	return int(id) < len(p.alive) && p.alive[id]
}

// Destroy frees id into quarantine. Returns false for ids that are not alive.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	p.alive[id] = false
	p.live--
	p.quarantine = append(p.quarantine, id)
	return true
}

// ReleaseQuarantined makes every id destroyed since the previous call
// available for reuse and returns how many were released.
func (p *EntityPool) ReleaseQuarantined() int {
	n := len(p.quarantine)
	if n == 0 {
		return 0
	}
	if p.freeHead > 0 && p.freeHead >= len(p.freeList)/2 {
		p.freeList = append(p.freeList[:0], p.freeList[p.freeHead:]...)
		p.freeHead = 0
	}
	p.freeList = append(p.freeList, p.quarantine...)
	p.quarantine = p.quarantine[:0]
	return n
}

// Live returns the number of allocated ids.
func (p *EntityPool) Live() int { return p.live }

// Quarantined returns how many ids wait for the next release.
func (p *EntityPool) Quarantined() int { return len(p.quarantine) }
