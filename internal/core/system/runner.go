package system

import (
	"fmt"
	"sort"
	"time"

	"github.com/survgo/server/internal/core/ecs"
	"go.uber.org/zap"
)

// Runner executes systems in phase order each tick. Within a phase systems
// keep their registration order. The order is fixed on the first tick.
type Runner struct {
	systems []System
	sorted  bool

	tick     uint64
	now      func() time.Time
	overload *OverloadMonitor
	stats    *TickMonitor
	failures map[string]int
	log      *zap.Logger
}

func NewRunner(overload OverloadConfig, log *zap.Logger) *Runner {
	return &Runner{
		systems:  make([]System, 0, 16),
		now:      time.Now,
		overload: NewOverloadMonitor("tick", overload, log),
		stats:    NewTickMonitor(),
		failures: make(map[string]int),
		log:      log,
	}
}

// SetClock replaces the wall clock used to time ticks.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Register adds a system. Systems registered after the first tick are
// rejected so the declared order never changes at runtime.
func (r *Runner) Register(s System) {
	if r.sorted {
		r.log.Error("system registered after first tick, ignored", zap.String("system", systemName(s)))
		return
	}
	r.systems = append(r.systems, s)
}

// Tick runs every system once. A panicking system is logged and skipped;
// the remaining systems still run.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	r.tick++
	start := r.now()
	for _, s := range r.systems {
		r.safeUpdate(s, dt)
	}
	elapsed := r.now().Sub(start)
	r.stats.Observe(elapsed)
	r.overload.Observe(r.tick, elapsed)
}

func (r *Runner) safeUpdate(s System, dt time.Duration) {
	defer func() {
		if rec := recover(); rec != nil {
			name := systemName(s)
			r.failures[name]++
			r.log.Error("system panic recovered",
				zap.String("system", name),
				zap.String("phase", s.Phase().String()),
				zap.Uint64("tick", r.tick),
				zap.Int("failures", r.failures[name]),
				zap.Any("panic", rec),
				zap.StackSkip("stack", 2),
			)
		}
	}()
	s.Update(dt)
}

// SafeEach calls fn for every item in store. A panic in one call is logged
// and the walk continues with the next item.
func SafeEach[T any](store *ecs.Store[T], log *zap.Logger, system string, fn func(ecs.EntityID, *T)) {
	store.Each(func(id ecs.EntityID, v *T) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("entity panic recovered",
					zap.String("system", system),
					zap.Uint16("id", uint16(id)),
					zap.Any("panic", rec),
					zap.StackSkip("stack", 2),
				)
			}
		}()
		fn(id, v)
	})
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}

// TickCount returns the number of completed ticks.
func (r *Runner) TickCount() uint64 { return r.tick }

func (r *Runner) Stats() TickMetricsSnapshot { return r.stats.Snapshot() }

func (r *Runner) Overload() *OverloadMonitor { return r.overload }

// Failures returns how often the named system panicked.
func (r *Runner) Failures(name string) int { return r.failures[name] }

func systemName(s System) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
