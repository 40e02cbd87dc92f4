package system

import (
	"context"
	"time"
)

// maxCatchUp bounds how many fixed steps run for one wake-up so a long stall
// cannot spiral into ever longer catch-up bursts.
const maxCatchUp = 5

// Loop drives a fixed timestep simulation on the calling goroutine.
type Loop struct {
	step time.Duration
	tick func(step time.Duration)
}

// NewLoop configures a loop that targets the provided ticks per second.
func NewLoop(targetHz float64, tick func(step time.Duration)) *Loop {
	if targetHz <= 0 {
		targetHz = 30
	}
	if tick == nil {
		tick = func(time.Duration) {}
	}
	interval := time.Duration(float64(time.Second) / targetHz)
	if interval <= 0 {
		interval = time.Second / 30
	}
	return &Loop{step: interval, tick: tick}
}

// Run ticks until ctx is cancelled. Cancellation is observed between ticks,
// so an in-flight tick always completes before Run returns.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.step)
	defer ticker.Stop()

	last := time.Now()
	var accumulator time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			accumulator += now.Sub(last)
			last = now
			steps := 0
			for accumulator >= l.step && steps < maxCatchUp {
				l.tick(l.step)
				accumulator -= l.step
				steps++
				if ctx.Err() != nil {
					return
				}
			}
			if steps == maxCatchUp {
				accumulator = 0
			}
		}
	}
}

// StepDuration exposes the configured timestep.
func (l *Loop) StepDuration() time.Duration { return l.step }
