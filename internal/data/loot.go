package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LootKind groups loot definitions by how a player uses them.
type LootKind string

const (
	LootGun      LootKind = "gun"
	LootAmmo     LootKind = "ammo"
	LootHeal     LootKind = "heal"
	LootScope    LootKind = "scope"
	LootHelmet   LootKind = "helmet"
	LootChest    LootKind = "chest"
	LootBackpack LootKind = "backpack"
)

// GunDef holds weapon stats for loot of kind "gun".
type GunDef struct {
	Ammo          string  `yaml:"ammo"`
	Damage        float32 `yaml:"damage"`
	BulletSpeed   float32 `yaml:"bullet_speed"` // units per second
	Range         float32 `yaml:"range"`
	FireDelaySec  float64 `yaml:"fire_delay"`
	ReloadSec     float64 `yaml:"reload_time"`
	Clip          int     `yaml:"clip"`
	Pellets       int     `yaml:"pellets"`
	SpreadDeg     float32 `yaml:"spread"`
	SmokeOnExpire bool    `yaml:"smoke_on_expire"`
}

func (g *GunDef) FireDelay() time.Duration  { return seconds(g.FireDelaySec) }
func (g *GunDef) ReloadTime() time.Duration { return seconds(g.ReloadSec) }

// LootDef is one loot type. ID is assigned from file order (1-based) and is
// what goes on the wire.
type LootDef struct {
	ID         uint16   `yaml:"-"`
	Name       string   `yaml:"name"`
	Kind       LootKind `yaml:"kind"`
	Stack      int      `yaml:"stack"`
	Level      uint8    `yaml:"level"`    // helmet/chest/backpack
	Zoom       float32  `yaml:"zoom"`     // scope
	Heal       float32  `yaml:"heal"`     // heal
	Boost      float32  `yaml:"boost"`    // heal
	UseTimeSec float64  `yaml:"use_time"` // heal
	Gun        *GunDef  `yaml:"gun"`
}

func (d *LootDef) UseTime() time.Duration { return seconds(d.UseTimeSec) }

type lootListFile struct {
	Loot []LootDef `yaml:"loot"`
}

// LootTable holds all loot definitions indexed by name and wire id.
type LootTable struct {
	byName map[string]*LootDef
	byID   []*LootDef
}

func (t *LootTable) Get(name string) (*LootDef, bool) {
	d, ok := t.byName[name]
	return d, ok
}

func (t *LootTable) ByID(id uint16) (*LootDef, bool) {
	if id == 0 || int(id) > len(t.byID) {
		return nil, false
	}
	return t.byID[id-1], true
}

func (t *LootTable) Count() int { return len(t.byID) }

// LoadLootTable loads loot definitions from a YAML file.
func LoadLootTable(path string) (*LootTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loot_list: %w", err)
	}
	t, err := ParseLootTable(raw)
	if err != nil {
		return nil, fmt.Errorf("parse loot_list: %w", err)
	}
	return t, nil
}

func ParseLootTable(raw []byte) (*LootTable, error) {
	var f lootListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	t := &LootTable{
		byName: make(map[string]*LootDef, len(f.Loot)),
		byID:   make([]*LootDef, 0, len(f.Loot)),
	}
	for i := range f.Loot {
		d := &f.Loot[i]
		if d.Name == "" {
			return nil, fmt.Errorf("loot entry %d has no name", i)
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate loot %q", d.Name)
		}
		switch d.Kind {
		case LootGun:
			if d.Gun == nil {
				return nil, fmt.Errorf("gun %q has no gun block", d.Name)
			}
			if d.Gun.Pellets <= 0 {
				d.Gun.Pellets = 1
			}
			if d.Gun.Clip <= 0 {
				d.Gun.Clip = 1
			}
		case LootAmmo, LootHeal, LootScope, LootHelmet, LootChest, LootBackpack:
		default:
			return nil, fmt.Errorf("loot %q has unknown kind %q", d.Name, d.Kind)
		}
		if d.Stack <= 0 {
			d.Stack = 1
		}
		d.ID = uint16(len(t.byID) + 1)
		t.byName[d.Name] = d
		t.byID = append(t.byID, d)
	}
	for _, d := range t.byID {
		if d.Kind == LootGun && d.Gun.Ammo != "" {
			if a, ok := t.byName[d.Gun.Ammo]; !ok || a.Kind != LootAmmo {
				return nil, fmt.Errorf("gun %q uses unknown ammo %q", d.Name, d.Gun.Ammo)
			}
		}
	}
	return t, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
