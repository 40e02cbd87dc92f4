package system

import "time"

// Phase defines execution ordering within a single tick. Later phases read
// state written by earlier ones in the same tick.
type Phase int

const (
	PhaseInput       Phase = iota // 0: drain session queues, dispatch client messages
	PhaseEvents                   // 1: deliver last tick's events
	PhaseRules                    // 2: world rules (gas)
	PhaseEntities                 // 3: players, loot, dynamic obstacles
	PhaseProjectiles              // 4: projectile movement and hits
	PhaseEffects                  // 5: smoke and other timed effects
	PhaseReap                     // 6: destroy queued entities
	PhaseOutput                   // 7: replication pass, dirty flush, socket hand-off
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseEvents:
		return "events"
	case PhaseRules:
		return "rules"
	case PhaseEntities:
		return "entities"
	case PhaseProjectiles:
		return "projectiles"
	case PhaseEffects:
		return "effects"
	case PhaseReap:
		return "reap"
	case PhaseOutput:
		return "output"
	default:
		return "unknown"
	}
}

// System is the interface every simulation subsystem implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Named is optionally implemented by systems for log output.
type Named interface {
	Name() string
}
