package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/survgo/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the match rules.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script from the given
// directory and its rule subdirectories.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	for _, sub := range []string{"", "world"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts %s: %w", p, err)
		}
	}
	return e, nil
}

// NewEngineFromString loads a single chunk; used for tests and embedded
// defaults.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

// loadDir loads all .lua files in a directory. Missing directories are
// skipped.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// --- Gas bridge ---

// GasStage calls Lua gas_stage(n). A nil return ends the schedule.
func (e *Engine) GasStage(n int) (world.GasStage, bool, error) {
	fn := e.vm.GetGlobal("gas_stage")
	if fn == lua.LNil {
		return world.GasStage{}, false, nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(n)); err != nil {
		return world.GasStage{}, false, fmt.Errorf("lua gas_stage(%d): %w", n, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	if result == lua.LNil {
		return world.GasStage{}, false, nil
	}
	rt, ok := result.(*lua.LTable)
	if !ok {
		return world.GasStage{}, false, fmt.Errorf("lua gas_stage(%d) returned %s", n, result.Type())
	}

	var mode world.GasMode
	switch m := lStr(rt, "mode"); m {
	case "waiting":
		mode = world.GasWaiting
	case "moving":
		mode = world.GasMoving
	default:
		return world.GasStage{}, false, fmt.Errorf("lua gas_stage(%d): unknown mode %q", n, m)
	}
	return world.GasStage{
		Mode:     mode,
		Duration: time.Duration(lFloat(rt, "duration") * float64(time.Second)),
		RadNew:   float32(lFloat(rt, "rad_new")),
		Damage:   float32(lFloat(rt, "damage")),
	}, true, nil
}

// --- Loadout bridge ---

// LoadoutItem is one entry of the kit a player spawns with.
type LoadoutItem struct {
	Name  string
	Count int
}

// StartingLoadout calls Lua starting_loadout(). A missing function means an
// empty kit.
func (e *Engine) StartingLoadout() []LoadoutItem {
	fn := e.vm.GetGlobal("starting_loadout")
	if fn == lua.LNil {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}); err != nil {
		e.log.Error("lua starting_loadout error", zap.Error(err))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}

	var items []LoadoutItem
	rt.ForEach(func(_, v lua.LValue) {
		it, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		count := lInt(it, "count")
		if count <= 0 {
			count = 1
		}
		items = append(items, LoadoutItem{Name: lStr(it, "name"), Count: count})
	})
	return items
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

func lFloat(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
