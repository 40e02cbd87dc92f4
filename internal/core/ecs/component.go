package ecs

// Store is a generic typed store for one kind of object. Iteration follows
// insertion order until a removal swaps the last element into the hole.
// No reflect, no interface{}; pure generics.
type Store[T any] struct {
	index   map[EntityID]int
	ids     []EntityID
	items   []*T
	scratch []*T
	busy    bool
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		index: make(map[EntityID]int, 256),
		ids:   make([]EntityID, 0, 256),
		items: make([]*T, 0, 256),
	}
}

func (s *Store[T]) Set(id EntityID, c *T) {
	if i, ok := s.index[id]; ok {
		s.items[i] = c
		return
	}
	s.index[id] = len(s.items)
	s.ids = append(s.ids, id)
	s.items = append(s.items, c)
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

func (s *Store[T]) Remove(id EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	last := len(s.items) - 1
	if i != last {
		s.items[i] = s.items[last]
		s.ids[i] = s.ids[last]
		s.index[s.ids[i]] = i
	}
	s.items[last] = nil
	s.items = s.items[:last]
	s.ids = s.ids[:last]
	delete(s.index, id)
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.items)
}

// Each visits a snapshot of the store. Items removed during the walk are
// skipped; items added during the walk are visited next time.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	var snap []*T
	if s.busy {
		snap = append([]*T(nil), s.items...)
	} else {
		s.busy = true
		defer func() { s.busy = false }()
		s.scratch = append(s.scratch[:0], s.items...)
		snap = s.scratch
	}
	ids := append([]EntityID(nil), s.ids...)
	for i, c := range snap {
		if cur, ok := s.Get(ids[i]); !ok || cur != c {
			continue
		}
		fn(ids[i], c)
	}
}
