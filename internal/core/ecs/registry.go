package ecs

import (
	"fmt"

	"github.com/survgo/server/internal/core/assert"
	"go.uber.org/zap"
)

// Removable is implemented by all per-kind stores so the Registry can
// drop an entity from every store on unregister.
type Removable interface {
	Remove(id EntityID)
}

type dirtyBits uint8

const (
	dirtyFull dirtyBits = 1 << iota
	dirtyPart
)

// Registry owns the id space of simulated objects and records which of them
// were created, changed or deleted since the last Flush. Accessed only from
// the game loop goroutine.
type Registry[T any] struct {
	pool    *EntityPool
	objects []T
	dirty   []dirtyBits

	dirtyList []EntityID
	created   []EntityID
	deleted   []EntityID

	stores []Removable
	check  *assert.Checker
}

func NewRegistry[T any](check *assert.Checker) *Registry[T] {
	return newRegistryWithPool[T](NewEntityPool(), check)
}

func newRegistryWithPool[T any](pool *EntityPool, check *assert.Checker) *Registry[T] {
	return &Registry[T]{
		pool:      pool,
		objects:   make([]T, 1, 1024),
		dirty:     make([]dirtyBits, 1, 1024),
		dirtyList: make([]EntityID, 0, 256),
		created:   make([]EntityID, 0, 64),
		deleted:   make([]EntityID, 0, 64),
		stores:    make([]Removable, 0, 8),
		check:     check,
	}
}

// Track adds a store that is cleaned on Unregister.
func (r *Registry[T]) Track(store Removable) {
	r.stores = append(r.stores, store)
}

// Register allocates an id for obj. New objects start full-dirty.
func (r *Registry[T]) Register(obj T) (EntityID, error) {
	id, err := r.pool.Create()
	if err != nil {
		return 0, fmt.Errorf("register object: %w", err)
	}
	for int(id) >= len(r.objects) {
		var zero T
		r.objects = append(r.objects, zero)
		r.dirty = append(r.dirty, 0)
	}
	r.objects[id] = obj
	r.created = append(r.created, id)
	r.mark(id, dirtyFull)
	return id, nil
}

// Unregister frees id. The id stays quarantined until the next Flush.
func (r *Registry[T]) Unregister(id EntityID) bool {
	if !r.pool.Destroy(id) {
		return r.check.Violation("unregister of dead id", zap.Uint16("id", uint16(id)))
	}
	var zero T
	r.objects[id] = zero
	for _, s := range r.stores {
		s.Remove(id)
	}
	r.deleted = append(r.deleted, id)
	return true
}

func (r *Registry[T]) Get(id EntityID) (T, bool) {
	if !r.pool.Alive(id) {
		var zero T
		return zero, false
	}
	return r.objects[id], true
}

func (r *Registry[T]) Alive(id EntityID) bool { return r.pool.Alive(id) }

func (r *Registry[T]) Len() int { return r.pool.Live() }

func (r *Registry[T]) MarkFull(id EntityID) {
	if !r.pool.Alive(id) {
		r.check.Violation("mark full on dead id", zap.Uint16("id", uint16(id)))
		return
	}
	r.mark(id, dirtyFull)
}

func (r *Registry[T]) MarkPart(id EntityID) {
	if !r.pool.Alive(id) {
		r.check.Violation("mark part on dead id", zap.Uint16("id", uint16(id)))
		return
	}
	r.mark(id, dirtyPart)
}

func (r *Registry[T]) mark(id EntityID, bit dirtyBits) {
	if r.dirty[id] == 0 {
		r.dirtyList = append(r.dirtyList, id)
	}
	r.dirty[id] |= bit
}

func (r *Registry[T]) IsFullDirty(id EntityID) bool {
	return int(id) < len(r.dirty) && r.dirty[id]&dirtyFull != 0
}

func (r *Registry[T]) IsPartDirty(id EntityID) bool {
	return int(id) < len(r.dirty) && r.dirty[id]&dirtyPart != 0
}

// Created returns ids registered since the last Flush. Do not retain.
func (r *Registry[T]) Created() []EntityID { return r.created }

// Deleted returns ids unregistered since the last Flush. Do not retain.
func (r *Registry[T]) Deleted() []EntityID { return r.deleted }

// Dirty returns ids that carry any dirty marker. Do not retain.
func (r *Registry[T]) Dirty() []EntityID { return r.dirtyList }

// Flush clears all dirty markers, drains the created/deleted lists and
// releases quarantined ids. Must run only after every client has been
// served for the pass.
func (r *Registry[T]) Flush() {
	for _, id := range r.dirtyList {
		r.dirty[id] = 0
	}
	r.dirtyList = r.dirtyList[:0]
	r.created = r.created[:0]
	r.deleted = r.deleted[:0]
	r.pool.ReleaseQuarantined()
}
