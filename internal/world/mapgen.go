package world

import (
	"fmt"

	"github.com/survgo/server/internal/core/geom"
	"github.com/survgo/server/internal/data"
	"go.uber.org/zap"
)

const placementTries = 32

// Generate populates the world from a map definition. Random placements that
// find no free spot are skipped. Returns the number of objects placed.
func (w *World) Generate(m *data.MapDef) (int, error) {
	placed, skipped := 0, 0
	for i, p := range m.Placements {
		for n := 0; n < p.Count; n++ {
			ok, err := w.place(p)
			if err != nil {
				return placed, fmt.Errorf("placement %d: %w", i, err)
			}
			if ok {
				placed++
			} else {
				skipped++
			}
		}
	}
	if skipped > 0 {
		w.log.Warn("map placements skipped", zap.Int("skipped", skipped), zap.String("map", m.Name))
	}
	return placed, nil
}

func (w *World) place(p data.Placement) (bool, error) {
	if p.Obstacle != "" {
		def, ok := w.defs.Obstacles.Get(p.Obstacle)
		if !ok {
			return false, fmt.Errorf("unknown obstacle %q", p.Obstacle)
		}
		scale := def.Scale.Min + w.rng.Float32()*(def.Scale.Max-def.Scale.Min)
		var ori uint8
		if def.Collider.Type == "box" && !p.Fixed {
			ori = uint8(w.rng.Intn(4))
		}
		pos := geom.V(p.X, p.Y)
		if !p.Fixed {
			var found bool
			if pos, found = w.FreePos(obstacleExtent(def)*scale, placementTries); !found {
				return false, nil
			}
		}
		_, err := w.AddObstacle(def, pos, ori, scale)
		return err == nil, err
	}

	def, ok := w.defs.Loot.Get(p.Loot)
	if !ok {
		return false, fmt.Errorf("unknown loot %q", p.Loot)
	}
	pos := geom.V(p.X, p.Y)
	if !p.Fixed {
		var found bool
		if pos, found = w.FreePos(LootRadius, placementTries); !found {
			return false, nil
		}
	}
	count := 1
	if def.Kind == data.LootAmmo {
		count = max(1, def.Stack/2)
	}
	_, err := w.AddLoot(def, count, pos)
	return err == nil, err
}

func obstacleExtent(def *data.ObstacleDef) float32 {
	if def.Collider.Type == "circle" {
		return def.Collider.Radius
	}
	return max(def.Collider.HalfWidth, def.Collider.HalfHeight)
}
