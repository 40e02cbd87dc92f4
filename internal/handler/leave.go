package handler

import "go.uber.org/zap"

// HandleDisconnect cleans up after a closed session: the replication slot
// goes away and its player is queued for destruction.
func HandleDisconnect(sessionID uint64, deps *Deps) {
	c, ok := deps.Replicator.Client(sessionID)
	if !ok {
		return
	}
	if p := c.Player(); p != nil && p.Live() {
		deps.World.MarkForDestruction(p)
		deps.Log.Info("player left",
			zap.Uint64("session", sessionID),
			zap.String("name", p.Name()),
		)
		deps.record("leave", map[string]any{
			"session": sessionID,
			"player":  uint16(p.ID()),
		})
	}
	deps.Replicator.RemoveClient(sessionID)
}
