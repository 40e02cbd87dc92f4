package ecs

import (
	"errors"
	"testing"

	"github.com/survgo/server/internal/core/assert"
	"go.uber.org/zap/zaptest"
)

type testObj struct{ name string }

func newTestRegistry(t *testing.T) *Registry[*testObj] {
	t.Helper()
	return NewRegistry[*testObj](assert.NewChecker(false, zaptest.NewLogger(t)))
}

func TestRegisterStartsFullDirty(t *testing.T) {
	r := newTestRegistry(t)
	id, err := r.Register(&testObj{name: "a"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id.IsZero() {
		t.Fatalf("id 0 must never be allocated")
	}
	if !r.IsFullDirty(id) || r.IsPartDirty(id) {
		t.Fatalf("new object must be full dirty only")
	}
	if len(r.Created()) != 1 || r.Created()[0] != id {
		t.Fatalf("expected created list to contain %d, got %v", id, r.Created())
	}
}

func TestFlushClearsDirtyMarkers(t *testing.T) {
	r := newTestRegistry(t)
	a, _ := r.Register(&testObj{})
	b, _ := r.Register(&testObj{})
	r.MarkPart(a)
	r.Flush()
	for _, id := range []EntityID{a, b} {
		if r.IsFullDirty(id) || r.IsPartDirty(id) {
			t.Fatalf("id %d still dirty after flush", id)
		}
	}
	if len(r.Created()) != 0 || len(r.Dirty()) != 0 {
		t.Fatalf("flush must drain created and dirty lists")
	}

	r.MarkPart(b)
	if !r.IsPartDirty(b) || r.IsFullDirty(b) {
		t.Fatalf("explicit mark must set only the part marker")
	}
	if r.IsPartDirty(a) {
		t.Fatalf("unrelated id became dirty")
	}
}

func TestDirtyListHasNoDuplicates(t *testing.T) {
	r := newTestRegistry(t)
	id, _ := r.Register(&testObj{})
	r.MarkPart(id)
	r.MarkFull(id)
	r.MarkPart(id)
	if n := len(r.Dirty()); n != 1 {
		t.Fatalf("expected one dirty entry, got %d", n)
	}
}

func TestFreedIDNotReusedBeforeFlush(t *testing.T) {
	r := newTestRegistry(t)
	a, _ := r.Register(&testObj{})
	r.Flush()

	if !r.Unregister(a) {
		t.Fatalf("unregister failed")
	}
	b, _ := r.Register(&testObj{})
	if b == a {
		t.Fatalf("id %d reused in the tick it was freed", a)
	}
	if len(r.Deleted()) != 1 || r.Deleted()[0] != a {
		t.Fatalf("expected deleted list [%d], got %v", a, r.Deleted())
	}

	r.Flush()
	c, _ := r.Register(&testObj{})
	if c != a {
		t.Fatalf("expected quarantined id %d to be reused after flush, got %d", a, c)
	}
}

func TestFreeListIsFIFO(t *testing.T) {
	r := newTestRegistry(t)
	ids := make([]EntityID, 3)
	for i := range ids {
		ids[i], _ = r.Register(&testObj{})
	}
	r.Unregister(ids[1])
	r.Unregister(ids[0])
	r.Flush()
	first, _ := r.Register(&testObj{})
	second, _ := r.Register(&testObj{})
	if first != ids[1] || second != ids[0] {
		t.Fatalf("expected reuse order %d,%d got %d,%d", ids[1], ids[0], first, second)
	}
}

func TestUnregisterRemovesFromStores(t *testing.T) {
	r := newTestRegistry(t)
	store := NewStore[testObj]()
	r.Track(store)
	obj := &testObj{}
	id, _ := r.Register(obj)
	store.Set(id, obj)
	r.Unregister(id)
	if store.Has(id) {
		t.Fatalf("store still holds unregistered id")
	}
	if _, ok := r.Get(id); ok {
		t.Fatalf("registry still resolves unregistered id")
	}
}

func TestDoubleUnregisterIsIgnored(t *testing.T) {
	r := newTestRegistry(t)
	id, _ := r.Register(&testObj{})
	r.Unregister(id)
	if r.Unregister(id) {
		t.Fatalf("second unregister must report failure")
	}
	if len(r.Deleted()) != 1 {
		t.Fatalf("double unregister must not duplicate the deleted entry")
	}
}

func TestStrictCheckerPanics(t *testing.T) {
	r := NewRegistry[*testObj](assert.NewChecker(true, zaptest.NewLogger(t)))
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic in strict mode")
		}
	}()
	r.MarkFull(42)
}

func TestPoolExhaustion(t *testing.T) {
	r := newRegistryWithPool[*testObj](newEntityPool(2), assert.NewChecker(false, zaptest.NewLogger(t)))
	r.Register(&testObj{})
	r.Register(&testObj{})
	if _, err := r.Register(&testObj{}); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
}

func TestStoreEachSkipsRemoved(t *testing.T) {
	s := NewStore[testObj]()
	for i := EntityID(1); i <= 4; i++ {
		s.Set(i, &testObj{})
	}
	visited := 0
	s.Each(func(id EntityID, _ *testObj) {
		visited++
		if id == 1 {
			s.Remove(3)
			s.Remove(4)
		}
	})
	if visited != 2 {
		t.Fatalf("expected 2 visits, got %d", visited)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 items left, got %d", s.Len())
	}
}
