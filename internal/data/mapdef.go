package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Placement puts Count objects of one type on the map. With Fixed set the
// single object goes to (X, Y); otherwise positions are random.
type Placement struct {
	Obstacle string  `yaml:"obstacle"`
	Loot     string  `yaml:"loot"`
	Count    int     `yaml:"count"`
	Fixed    bool    `yaml:"fixed"`
	X        float32 `yaml:"x"`
	Y        float32 `yaml:"y"`
}

// MapDef describes the playable area and its initial contents.
type MapDef struct {
	Name       string      `yaml:"name"`
	Width      float32     `yaml:"width"`
	Height     float32     `yaml:"height"`
	Seed       int64       `yaml:"seed"`
	Placements []Placement `yaml:"placements"`
}

// LoadMapDef loads the map layout and checks every placement against the
// loot and obstacle tables.
func LoadMapDef(path string, obstacles *ObstacleTable, loot *LootTable) (*MapDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	m, err := ParseMapDef(raw, obstacles, loot)
	if err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	return m, nil
}

func ParseMapDef(raw []byte, obstacles *ObstacleTable, loot *LootTable) (*MapDef, error) {
	var m MapDef
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("map %q has no size", m.Name)
	}
	for i, p := range m.Placements {
		switch {
		case p.Obstacle != "" && p.Loot != "":
			return nil, fmt.Errorf("placement %d names both obstacle and loot", i)
		case p.Obstacle != "":
			if _, ok := obstacles.Get(p.Obstacle); !ok {
				return nil, fmt.Errorf("placement %d: unknown obstacle %q", i, p.Obstacle)
			}
		case p.Loot != "":
			if _, ok := loot.Get(p.Loot); !ok {
				return nil, fmt.Errorf("placement %d: unknown loot %q", i, p.Loot)
			}
		default:
			return nil, fmt.Errorf("placement %d names nothing", i)
		}
		if p.Count <= 0 {
			m.Placements[i].Count = 1
		}
	}
	return &m, nil
}
