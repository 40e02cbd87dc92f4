package event

import (
	"github.com/survgo/server/internal/core/ecs"
	"github.com/survgo/server/internal/core/geom"
)

// PlayerKilled is emitted when a player's health reaches zero.
type PlayerKilled struct {
	VictimID ecs.EntityID
	KillerID ecs.EntityID // 0 for gas or other world damage
	Pos      geom.Vec2
	Layer    uint8
}

// ObstacleDestroyed is emitted when a destructible obstacle breaks.
type ObstacleDestroyed struct {
	ObstacleID ecs.EntityID
	TypeName   string
	Pos        geom.Vec2
	Layer      uint8
}
