package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ColliderDef describes an obstacle's collision shape relative to its centre
// at scale 1.
type ColliderDef struct {
	Type       string  `yaml:"type"` // "circle" or "box"
	Radius     float32 `yaml:"radius"`
	HalfWidth  float32 `yaml:"half_width"`
	HalfHeight float32 `yaml:"half_height"`
}

type ScaleDef struct {
	Min     float32 `yaml:"min"`
	Max     float32 `yaml:"max"`
	Destroy float32 `yaml:"destroy"` // scale reached just before breaking
}

// LootDrop is one loot roll when an obstacle breaks or a player dies.
type LootDrop struct {
	Name   string  `yaml:"name"`
	Count  int     `yaml:"count"`
	Chance float64 `yaml:"chance"` // 0..1, 0 means always
}

// ObstacleDef is one obstacle type. ID is assigned from file order.
type ObstacleDef struct {
	ID           uint16      `yaml:"-"`
	Name         string      `yaml:"name"`
	Collider     ColliderDef `yaml:"collider"`
	Health       float32     `yaml:"health"`
	Destructible bool        `yaml:"destructible"`
	Collidable   *bool       `yaml:"collidable"`
	Scale        ScaleDef    `yaml:"scale"`
	Loot         []LootDrop  `yaml:"loot"`
}

// IsCollidable defaults to true when the field is omitted.
func (d *ObstacleDef) IsCollidable() bool {
	return d.Collidable == nil || *d.Collidable
}

type obstacleListFile struct {
	Obstacles []ObstacleDef `yaml:"obstacles"`
}

// ObstacleTable holds all obstacle definitions indexed by name and wire id.
type ObstacleTable struct {
	byName map[string]*ObstacleDef
	byID   []*ObstacleDef
}

func (t *ObstacleTable) Get(name string) (*ObstacleDef, bool) {
	d, ok := t.byName[name]
	return d, ok
}

func (t *ObstacleTable) ByID(id uint16) (*ObstacleDef, bool) {
	if id == 0 || int(id) > len(t.byID) {
		return nil, false
	}
	return t.byID[id-1], true
}

func (t *ObstacleTable) Count() int { return len(t.byID) }

// LoadObstacleTable loads obstacle definitions from a YAML file.
func LoadObstacleTable(path string) (*ObstacleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read obstacle_list: %w", err)
	}
	t, err := ParseObstacleTable(raw)
	if err != nil {
		return nil, fmt.Errorf("parse obstacle_list: %w", err)
	}
	return t, nil
}

func ParseObstacleTable(raw []byte) (*ObstacleTable, error) {
	var f obstacleListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	t := &ObstacleTable{
		byName: make(map[string]*ObstacleDef, len(f.Obstacles)),
		byID:   make([]*ObstacleDef, 0, len(f.Obstacles)),
	}
	for i := range f.Obstacles {
		d := &f.Obstacles[i]
		if d.Name == "" {
			return nil, fmt.Errorf("obstacle entry %d has no name", i)
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate obstacle %q", d.Name)
		}
		switch d.Collider.Type {
		case "circle":
			if d.Collider.Radius <= 0 {
				return nil, fmt.Errorf("obstacle %q: circle radius must be positive", d.Name)
			}
		case "box":
			if d.Collider.HalfWidth <= 0 || d.Collider.HalfHeight <= 0 {
				return nil, fmt.Errorf("obstacle %q: box extents must be positive", d.Name)
			}
		default:
			return nil, fmt.Errorf("obstacle %q has unknown collider %q", d.Name, d.Collider.Type)
		}
		if d.Scale.Min <= 0 {
			d.Scale.Min = 1
		}
		if d.Scale.Max < d.Scale.Min {
			d.Scale.Max = d.Scale.Min
		}
		if d.Scale.Destroy <= 0 || d.Scale.Destroy > d.Scale.Min {
			d.Scale.Destroy = d.Scale.Min
		}
		if d.Health <= 0 {
			d.Health = 100
		}
		d.ID = uint16(len(t.byID) + 1)
		t.byName[d.Name] = d
		t.byID = append(t.byID, d)
	}
	return t, nil
}
