package system

import (
	"testing"
	"time"

	"github.com/survgo/server/internal/core/assert"
	"github.com/survgo/server/internal/core/event"
	"github.com/survgo/server/internal/core/geom"
	coresys "github.com/survgo/server/internal/core/system"
	"github.com/survgo/server/internal/data"
	"github.com/survgo/server/internal/handler"
	"github.com/survgo/server/internal/net"
	"github.com/survgo/server/internal/replication"
	"github.com/survgo/server/internal/world"
	"go.uber.org/zap/zaptest"
)

type captureSink struct {
	msgs  [][]byte
	panic bool
}

func (s *captureSink) Send(b []byte) {
	if s.panic {
		panic("socket gone")
	}
	s.msgs = append(s.msgs, b)
}

type stages []world.GasStage

func (s stages) GasStage(n int) (world.GasStage, bool, error) {
	if n > len(s) {
		return world.GasStage{}, false, nil
	}
	return s[n-1], true, nil
}

type fixture struct {
	w      *world.World
	rep    *replication.Replicator
	deps   *handler.Deps
	runner *coresys.Runner
	tick   uint64
}

func newFixture(t *testing.T, interval int) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	obs, err := data.LoadObstacleTable("../../data/yaml/obstacles.yaml")
	if err != nil {
		t.Fatalf("obstacles: %v", err)
	}
	loot, err := data.LoadLootTable("../../data/yaml/loot.yaml")
	if err != nil {
		t.Fatalf("loot: %v", err)
	}
	bus := event.NewBus()
	w := world.New(world.Config{Width: 256, Height: 256, Seed: 3},
		world.Defs{Obstacles: obs, Loot: loot}, bus, assert.NewChecker(true, log), log)
	w.SubscribeEvents()

	f := &fixture{w: w}
	f.rep = replication.New(w, replication.Config{MaxFailures: 1}, log)
	f.deps = &handler.Deps{
		World:      w,
		Replicator: f.rep,
		Tick:       func() uint64 { return f.tick },
		ViewRadius: 40,
		Log:        log,
	}
	f.runner = coresys.NewRunner(coresys.OverloadConfig{}, log)
	f.runner.Register(NewEventSystem(bus))
	f.runner.Register(NewGasSystem(w))
	f.runner.Register(NewEntitySystem(w, log))
	f.runner.Register(NewProjectileSystem(w, log))
	f.runner.Register(NewEffectSystem(w, log))
	f.runner.Register(NewReapSystem(w))
	f.runner.Register(NewReplicationSystem(w, f.rep, net.NewSessionStore(), f.deps, interval,
		func() uint64 { return f.tick }, log))
	return f
}

func (f *fixture) step(dt time.Duration) {
	f.tick++
	f.runner.Tick(dt)
}

func (f *fixture) player(t *testing.T, pos geom.Vec2) (*world.Player, *captureSink) {
	t.Helper()
	p, err := f.w.AddPlayer("p", pos)
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	sink := &captureSink{}
	c := replication.NewClient(uint64(p.ID()), sink, pos, 40)
	c.SetPlayer(p)
	if err := f.rep.AddClient(c); err != nil {
		t.Fatalf("add client: %v", err)
	}
	return p, sink
}

func TestTickServesAndFlushes(t *testing.T) {
	f := newFixture(t, 1)
	p, sink := f.player(t, geom.V(100, 100))

	f.step(50 * time.Millisecond)
	if len(sink.msgs) != 1 {
		t.Fatalf("expected one update, got %d", len(sink.msgs))
	}
	if f.w.IsFullDirty(p.ID()) {
		t.Fatalf("dirty markers must be cleared after the pass")
	}
	if f.rep.Passes() != 1 {
		t.Fatalf("passes = %d", f.rep.Passes())
	}
}

func TestPassInterval(t *testing.T) {
	f := newFixture(t, 3)
	p, sink := f.player(t, geom.V(100, 100))

	f.step(10 * time.Millisecond)
	f.step(10 * time.Millisecond)
	if len(sink.msgs) != 0 {
		t.Fatalf("no pass expected before the interval")
	}
	if !f.w.IsFullDirty(p.ID()) {
		t.Fatalf("dirty markers must survive until a pass ran")
	}
	f.step(10 * time.Millisecond)
	if len(sink.msgs) != 1 || f.w.IsFullDirty(p.ID()) {
		t.Fatalf("third tick must serve and flush")
	}
}

func TestShotKillsAndLeavesBody(t *testing.T) {
	f := newFixture(t, 1)
	shooter, _ := f.player(t, geom.V(100, 100))
	victim, _ := f.player(t, geom.V(106, 100))
	ak, ok := f.w.Defs().Loot.Get("ak47")
	if !ok {
		t.Fatalf("no ak47 in loot table")
	}
	shooter.Give(ak, 1)

	for i := 0; i < 200 && !victim.Dead(); i++ {
		shooter.SetInput(world.Input{Aim: geom.V(1, 0), Shoot: true, EquipSlot: -1})
		f.step(50 * time.Millisecond)
	}
	if !victim.Dead() {
		t.Fatalf("victim survived, health %v", victim.Health())
	}
	if f.w.AliveCount() != 1 {
		t.Fatalf("alive = %d", f.w.AliveCount())
	}
	// The kill event is delivered on the following tick.
	f.step(50 * time.Millisecond)
	if f.w.DeadBodies.Len() != 1 {
		t.Fatalf("expected a dead body, got %d", f.w.DeadBodies.Len())
	}
	if shooter.Kills() != 1 {
		t.Fatalf("kill not credited")
	}
}

func TestGasHurtsPlayersOutside(t *testing.T) {
	f := newFixture(t, 1)
	a, _ := f.player(t, geom.V(2, 2))
	b, _ := f.player(t, geom.V(254, 254))
	f.w.Gas.Start(stages{{Mode: world.GasMoving, Duration: time.Second, RadNew: 5, Damage: 20}})

	f.step(time.Second)
	f.step(time.Second)
	if !f.w.Gas.Final() {
		t.Fatalf("single stage schedule must end final")
	}
	if a.Health() == world.MaxHealth && b.Health() == world.MaxHealth {
		t.Fatalf("one of two opposite corners must be outside a radius 5 circle")
	}
}

func TestGasInactiveDoesNothing(t *testing.T) {
	f := newFixture(t, 1)
	p, _ := f.player(t, geom.V(2, 2))
	f.step(time.Second)
	if p.Health() != world.MaxHealth {
		t.Fatalf("inactive gas must not hurt")
	}
}

func TestFailingClientIsDropped(t *testing.T) {
	f := newFixture(t, 1)
	p, sink := f.player(t, geom.V(100, 100))
	sink.panic = true

	f.step(10 * time.Millisecond)
	if f.rep.Len() != 0 {
		t.Fatalf("failing client must be removed")
	}
	// Its player goes away with the next reap.
	f.step(10 * time.Millisecond)
	if p.Live() {
		t.Fatalf("player of a dropped client must be destroyed")
	}
}

func TestSmokeExpires(t *testing.T) {
	f := newFixture(t, 1)
	sm, err := f.w.AddSmoke(geom.V(50, 50), world.SmokeRadius, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("add smoke: %v", err)
	}
	for i := 0; i < 5; i++ {
		f.step(200 * time.Millisecond)
	}
	if sm.Live() || f.w.Smokes.Len() != 0 {
		t.Fatalf("smoke outlived its life")
	}
}
