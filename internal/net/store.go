package net

import "github.com/survgo/server/internal/net/packet"

// SessionStore tracks live sessions by id. Game loop only.
type SessionStore struct {
	byID  map[uint64]*Session
	order []uint64
}

func NewSessionStore() *SessionStore {
	return &SessionStore{byID: make(map[uint64]*Session, 64)}
}

func (st *SessionStore) Add(s *Session) {
	if _, ok := st.byID[s.ID]; ok {
		return
	}
	st.byID[s.ID] = s
	st.order = append(st.order, s.ID)
}

func (st *SessionStore) Remove(id uint64) {
	if _, ok := st.byID[id]; !ok {
		return
	}
	delete(st.byID, id)
	for i, v := range st.order {
		if v == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
}

func (st *SessionStore) Get(id uint64) *Session { return st.byID[id] }

func (st *SessionStore) Len() int { return len(st.byID) }

// ForEach visits sessions in connection order. fn may remove the session it
// is given.
func (st *SessionStore) ForEach(fn func(*Session)) {
	ids := append([]uint64(nil), st.order...)
	for _, id := range ids {
		if s, ok := st.byID[id]; ok {
			fn(s)
		}
	}
}

// Broadcast buffers data on every session that has joined the match.
func (st *SessionStore) Broadcast(data []byte) {
	for _, id := range st.order {
		s := st.byID[id]
		if state := s.State(); state == packet.StatePlaying || state == packet.StateSpectating {
			s.Send(data)
		}
	}
}
