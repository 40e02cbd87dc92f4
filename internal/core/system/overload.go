package system

import (
	"time"

	"go.uber.org/zap"
)

// OverloadConfig controls when a timed section is considered overloaded.
type OverloadConfig struct {
	Threshold    time.Duration // warn when one run takes longer than this
	Limit        int           // overlong runs inside one window before widening
	WindowTicks  uint64        // window length in simulation ticks
	MaxThreshold time.Duration // 0 = no cap
}

func (c OverloadConfig) normalize() OverloadConfig {
	if c.Threshold <= 0 {
		c.Threshold = 50 * time.Millisecond
	}
	if c.Limit <= 0 {
		c.Limit = 5
	}
	if c.WindowTicks == 0 {
		c.WindowTicks = 100
	}
	return c
}

// OverloadMonitor counts overlong runs per window of ticks. When the count
// reaches the limit the threshold doubles once, a warning is logged and the
// window restarts. This is a soft degrade; nothing stops.
type OverloadMonitor struct {
	name        string
	cfg         OverloadConfig
	threshold   time.Duration
	windowStart uint64
	count       int
	widened     int
	log         *zap.Logger
}

func NewOverloadMonitor(name string, cfg OverloadConfig, log *zap.Logger) *OverloadMonitor {
	cfg = cfg.normalize()
	return &OverloadMonitor{
		name:      name,
		cfg:       cfg,
		threshold: cfg.Threshold,
		log:       log,
	}
}

// Observe records how long the section took at the given tick and reports
// whether the threshold was widened by this observation.
func (m *OverloadMonitor) Observe(tick uint64, d time.Duration) bool {
	if d <= m.threshold {
		return false
	}
	if m.count == 0 || tick-m.windowStart >= m.cfg.WindowTicks {
		m.windowStart = tick
		m.count = 0
	}
	m.count++
	m.log.Debug("overload: tick over threshold",
		zap.String("section", m.name),
		zap.Uint64("tick", tick),
		zap.Duration("took", d),
		zap.Duration("threshold", m.threshold),
		zap.Int("in_window", m.count),
	)
	if m.count < m.cfg.Limit {
		return false
	}

	m.count = 0
	old := m.threshold
	next := old * 2
	if m.cfg.MaxThreshold > 0 && next > m.cfg.MaxThreshold {
		next = m.cfg.MaxThreshold
	}
	if next == old {
		return false
	}
	m.threshold = next
	m.widened++
	m.log.Warn("overload: widening warning threshold",
		zap.String("section", m.name),
		zap.Uint64("tick", tick),
		zap.Duration("last", d),
		zap.Duration("old_threshold", old),
		zap.Duration("new_threshold", next),
	)
	return true
}

func (m *OverloadMonitor) Threshold() time.Duration { return m.threshold }

// Widened returns how many times the threshold has been doubled.
func (m *OverloadMonitor) Widened() int { return m.widened }
