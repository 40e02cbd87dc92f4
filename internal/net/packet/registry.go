package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateConnected  SessionState = iota // socket open, no join yet
	StatePlaying                        // controls a player
	StateSpectating                     // watches without a player
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StatePlaying:
		return "Playing"
	case StateSpectating:
		return "Spectating"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for message handlers.
// The session is passed as an opaque value to avoid import cycles.
type HandlerFunc func(sess any, r *Reader)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps message types to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps a message type to a handler, restricted to the given states.
func (reg *Registry) Register(msgType byte, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[msgType] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for the type in data[0], validates the session
// state and calls the handler. Unknown types are ignored.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty message")
	}
	msgType := data[0]

	entry, ok := reg.handlers[msgType]
	if !ok {
		reg.log.Debug("unknown message type", zap.Uint8("type", msgType), zap.String("state", state.String()))
		return nil
	}

	if !entry.allowedStates[state] {
		reg.log.Debug("message not allowed in state",
			zap.Uint8("type", msgType),
			zap.String("state", state.String()),
		)
		return fmt.Errorf("message %d not allowed in state %s", msgType, state)
	}

	r := NewReader(data)
	if err := reg.safeCall(entry.fn, sess, r, msgType); err != nil {
		return err
	}
	if r.Err() != nil {
		return fmt.Errorf("message %d: %w", msgType, r.Err())
	}
	return nil
}

// safeCall executes a handler with panic recovery so a single bad message
// cannot take down the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, r *Reader, msgType byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.Uint8("type", msgType),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for message %d: %v", msgType, rec)
		}
	}()
	fn(sess, r)
	return nil
}
