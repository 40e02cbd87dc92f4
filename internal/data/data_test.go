package data

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestShippedTablesLoad(t *testing.T) {
	dir := filepath.Join("..", "..", "data", "yaml")
	obs, err := LoadObstacleTable(filepath.Join(dir, "obstacles.yaml"))
	if err != nil {
		t.Fatalf("obstacles: %v", err)
	}
	loot, err := LoadLootTable(filepath.Join(dir, "loot.yaml"))
	if err != nil {
		t.Fatalf("loot: %v", err)
	}
	m, err := LoadMapDef(filepath.Join(dir, "map.yaml"), obs, loot)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if obs.Count() == 0 || loot.Count() == 0 || len(m.Placements) == 0 {
		t.Fatalf("shipped tables must not be empty")
	}
}

func TestLootIDsFollowFileOrder(t *testing.T) {
	tbl, err := ParseLootTable([]byte(`
loot:
  - { name: 9mm, kind: ammo }
  - name: m9
    kind: gun
    gun: { ammo: 9mm, damage: 12, fire_delay: 0.25, reload_time: 1.5, clip: 15 }
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	gun, ok := tbl.Get("m9")
	if !ok || gun.ID != 2 {
		t.Fatalf("expected m9 with id 2, got %+v", gun)
	}
	if byID, ok := tbl.ByID(2); !ok || byID != gun {
		t.Fatalf("ByID(2) mismatch")
	}
	if _, ok := tbl.ByID(0); ok {
		t.Fatalf("id 0 must not resolve")
	}
	if gun.Gun.FireDelay() != 250*time.Millisecond {
		t.Fatalf("fire delay = %v", gun.Gun.FireDelay())
	}
	if gun.Gun.Pellets != 1 {
		t.Fatalf("pellets must default to 1, got %d", gun.Gun.Pellets)
	}
}

func TestLootTableRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"unknown kind", "loot:\n  - { name: x, kind: hat }\n", "unknown kind"},
		{"duplicate", "loot:\n  - { name: x, kind: ammo }\n  - { name: x, kind: ammo }\n", "duplicate"},
		{"gun without block", "loot:\n  - { name: x, kind: gun }\n", "no gun block"},
		{"missing ammo", "loot:\n  - name: x\n    kind: gun\n    gun: { ammo: nope }\n", "unknown ammo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLootTable([]byte(tc.raw))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestObstacleDefaults(t *testing.T) {
	tbl, err := ParseObstacleTable([]byte(`
obstacles:
  - name: tree
    collider: { type: circle, radius: 1.5 }
  - name: bush
    collider: { type: circle, radius: 1 }
    collidable: false
    scale: { min: 1, max: 1.2, destroy: 2 }
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tree, _ := tbl.Get("tree")
	if tree.Health != 100 || tree.Scale.Min != 1 || tree.Scale.Max != 1 {
		t.Fatalf("defaults not applied: %+v", tree)
	}
	if !tree.IsCollidable() {
		t.Fatalf("collidable must default to true")
	}
	bush, _ := tbl.Get("bush")
	if bush.IsCollidable() {
		t.Fatalf("bush must not collide")
	}
	if bush.Scale.Destroy != bush.Scale.Min {
		t.Fatalf("destroy scale must be clamped to min, got %v", bush.Scale.Destroy)
	}
}

func TestObstacleRejectsBadCollider(t *testing.T) {
	_, err := ParseObstacleTable([]byte("obstacles:\n  - { name: x, collider: { type: box, half_width: 1 } }\n"))
	if err == nil {
		t.Fatalf("expected error for box without height")
	}
}

func TestMapDefValidatesPlacements(t *testing.T) {
	obs, _ := ParseObstacleTable([]byte("obstacles:\n  - { name: tree, collider: { type: circle, radius: 1 } }\n"))
	loot, _ := ParseLootTable([]byte("loot:\n  - { name: 9mm, kind: ammo }\n"))

	m, err := ParseMapDef([]byte("width: 100\nheight: 100\nplacements:\n  - { obstacle: tree }\n  - { loot: 9mm, count: 3 }\n"), obs, loot)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Placements[0].Count != 1 {
		t.Fatalf("count must default to 1")
	}

	if _, err := ParseMapDef([]byte("width: 100\nheight: 100\nplacements:\n  - { obstacle: rock }\n"), obs, loot); err == nil {
		t.Fatalf("expected unknown obstacle error")
	}
	if _, err := ParseMapDef([]byte("placements: []\n"), obs, loot); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestLoadWrapsReadErrors(t *testing.T) {
	_, err := LoadLootTable(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
}
