package world

import (
	"math"
	"math/rand"
	"time"

	"github.com/survgo/server/internal/core/geom"
	"go.uber.org/zap"
)

// GasMode is the state of the gas circle.
type GasMode uint8

const (
	GasInactive GasMode = iota
	GasWaiting
	GasMoving
)

func (m GasMode) String() string {
	switch m {
	case GasWaiting:
		return "waiting"
	case GasMoving:
		return "moving"
	default:
		return "inactive"
	}
}

// GasStage describes one step of the gas schedule.
type GasStage struct {
	Mode     GasMode
	Duration time.Duration
	RadNew   float32
	Damage   float32 // per second outside the safe circle
}

// StageSource supplies gas stages by number, starting at 1. ok is false
// once the schedule is exhausted.
type StageSource interface {
	GasStage(n int) (stage GasStage, ok bool, err error)
}

// Gas is the shrinking safe zone. Stage changes mark the full gas state
// dirty; every advancing tick marks the progress dirty.
type Gas struct {
	src StageSource
	rng *rand.Rand
	log *zap.Logger

	stage    int
	mode     GasMode
	duration time.Duration
	elapsed  time.Duration
	final    bool

	posOld, posNew geom.Vec2
	radOld, radNew float32
	pos            geom.Vec2
	rad            float32
	damage         float32

	dirty         bool
	progressDirty bool
}

func newGas(center geom.Vec2, width, height float32, rng *rand.Rand, log *zap.Logger) *Gas {
	r := float32(math.Hypot(float64(width), float64(height))) / 2
	return &Gas{
		rng:    rng,
		log:    log,
		posOld: center,
		posNew: center,
		pos:    center,
		radOld: r,
		radNew: r,
		rad:    r,
	}
}

// Start loads the first stage from src. Without a source the gas stays
// inactive.
func (g *Gas) Start(src StageSource) {
	g.src = src
	g.stage = 0
	g.final = false
	g.advance()
}

func (g *Gas) Mode() GasMode                { return g.mode }
func (g *Gas) Stage() int                   { return g.stage }
func (g *Gas) Final() bool                  { return g.final }
func (g *Gas) Damage() float32              { return g.damage }
func (g *Gas) Circle() (geom.Vec2, float32) { return g.pos, g.rad }
func (g *Gas) Dirty() bool                  { return g.dirty }
func (g *Gas) ProgressDirty() bool          { return g.progressDirty }

// Progress returns how far the current stage has run, in [0, 1].
func (g *Gas) Progress() float32 {
	if g.duration <= 0 {
		return 1
	}
	return geom.Clamp(float32(g.elapsed)/float32(g.duration), 0, 1)
}

// Inside reports whether p is in the safe circle.
func (g *Gas) Inside(p geom.Vec2) bool {
	if g.mode == GasInactive {
		return true
	}
	return p.DistSq(g.pos) <= g.rad*g.rad
}

// Update advances the current stage by dt.
func (g *Gas) Update(dt time.Duration) {
	if g.mode == GasInactive || g.final {
		return
	}
	g.elapsed += dt
	g.progressDirty = true
	if g.mode == GasMoving {
		t := g.Progress()
		g.pos = geom.Lerp(g.posOld, g.posNew, t)
		g.rad = geom.LerpF(g.radOld, g.radNew, t)
	}
	if g.elapsed >= g.duration {
		g.advance()
	}
}

func (g *Gas) advance() {
	if g.src == nil {
		return
	}
	next, ok, err := g.src.GasStage(g.stage + 1)
	if err != nil {
		g.log.Warn("gas stage failed, schedule stops", zap.Int("stage", g.stage+1), zap.Error(err))
		ok = false
	}
	if !ok {
		g.final = true
		g.posOld, g.radOld = g.pos, g.rad
		g.posNew, g.radNew = g.pos, g.rad
		g.elapsed, g.duration = 0, 0
		if g.mode == GasMoving {
			g.mode = GasWaiting
		}
		g.dirty = true
		return
	}
	g.stage++
	g.posOld, g.radOld = g.pos, g.rad
	g.mode = next.Mode
	g.duration = next.Duration
	g.elapsed = 0
	g.damage = next.Damage
	if next.Mode == GasMoving {
		radNew := geom.Clamp(next.RadNew, 0, g.rad)
		// New centre keeps the new circle inside the old one.
		slack := g.rad - radNew
		off := geom.V(g.rng.Float32()*slack, 0).Rotate(g.rng.Float32() * 2 * math.Pi)
		g.posNew, g.radNew = g.pos.Add(off), radNew
	} else {
		g.posNew, g.radNew = g.pos, g.rad
	}
	g.dirty = true
	g.log.Debug("gas stage",
		zap.Int("stage", g.stage),
		zap.Stringer("mode", g.mode),
		zap.Duration("duration", g.duration),
		zap.Float32("rad_new", g.radNew),
	)
}

func (g *Gas) clearDirty() {
	g.dirty = false
	g.progressDirty = false
}
