package scripting

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/survgo/server/internal/core/assert"
	"github.com/survgo/server/internal/core/event"
	"github.com/survgo/server/internal/world"
	"go.uber.org/zap/zaptest"
)

func TestShippedScripts(t *testing.T) {
	e, err := NewEngine(filepath.Join("..", "..", "scripts"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer e.Close()

	n := 0
	for {
		st, ok, err := e.GasStage(n + 1)
		if err != nil {
			t.Fatalf("stage %d: %v", n+1, err)
		}
		if !ok {
			break
		}
		if st.Duration <= 0 {
			t.Fatalf("stage %d has no duration", n+1)
		}
		n++
		if n > 100 {
			t.Fatalf("gas schedule never ends")
		}
	}
	if n == 0 {
		t.Fatalf("shipped gas schedule is empty")
	}
	if len(e.StartingLoadout()) == 0 {
		t.Fatalf("shipped loadout is empty")
	}
}

func TestGasStageConversion(t *testing.T) {
	e, err := NewEngineFromString(`
function gas_stage(n)
  if n == 1 then return { mode = "moving", duration = 1.5, rad_new = 40, damage = 3 } end
  if n == 2 then return { mode = "bogus" } end
  if n == 3 then return 7 end
  return nil
end
`, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer e.Close()

	st, ok, err := e.GasStage(1)
	if err != nil || !ok {
		t.Fatalf("stage 1: ok=%v err=%v", ok, err)
	}
	want := world.GasStage{Mode: world.GasMoving, Duration: 1500 * time.Millisecond, RadNew: 40, Damage: 3}
	if st != want {
		t.Fatalf("stage 1 = %+v, want %+v", st, want)
	}
	if _, _, err := e.GasStage(2); err == nil {
		t.Fatalf("unknown mode must fail")
	}
	if _, _, err := e.GasStage(3); err == nil {
		t.Fatalf("non-table result must fail")
	}
	if _, ok, err := e.GasStage(4); ok || err != nil {
		t.Fatalf("nil result must end the schedule cleanly")
	}
}

func TestScriptErrorsAreReturned(t *testing.T) {
	e, err := NewEngineFromString(`function gas_stage(n) error("broken") end`, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer e.Close()
	if _, _, err := e.GasStage(1); err == nil {
		t.Fatalf("lua error must surface")
	}
}

func TestMissingFunctions(t *testing.T) {
	e, err := NewEngineFromString(`x = 1`, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer e.Close()
	if _, ok, err := e.GasStage(1); ok || err != nil {
		t.Fatalf("missing gas_stage means no gas")
	}
	if e.StartingLoadout() != nil {
		t.Fatalf("missing loadout means empty kit")
	}
}

func TestGasFollowsScript(t *testing.T) {
	e, err := NewEngineFromString(`
function gas_stage(n)
  if n == 1 then return { mode = "waiting", duration = 1, damage = 1 } end
  if n == 2 then return { mode = "moving", duration = 2, rad_new = 10, damage = 5 } end
  return nil
end
`, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer e.Close()

	w := world.New(world.Config{Width: 100, Height: 100, Seed: 1}, world.Defs{},
		event.NewBus(), assert.NewChecker(true, zaptest.NewLogger(t)), zaptest.NewLogger(t))
	g := w.Gas
	g.Start(e)
	if g.Mode() != world.GasWaiting || !g.Dirty() {
		t.Fatalf("first stage must be waiting and dirty")
	}
	g.Update(time.Second)
	if g.Mode() != world.GasMoving || g.Stage() != 2 {
		t.Fatalf("expected moving stage 2, got %v/%d", g.Mode(), g.Stage())
	}
	g.Update(time.Second)
	_, r := g.Circle()
	if r <= 10 {
		t.Fatalf("halfway radius must still be above target, got %v", r)
	}
	g.Update(time.Second)
	if !g.Final() {
		t.Fatalf("schedule end must leave the gas final")
	}
	_, r = g.Circle()
	if r != 10 {
		t.Fatalf("final radius = %v", r)
	}
	if g.Damage() != 5 {
		t.Fatalf("damage must stay at the last stage, got %v", g.Damage())
	}
}
