package replication

import (
	"fmt"
	"slices"
	"time"

	"github.com/survgo/server/internal/core/ecs"
	coresys "github.com/survgo/server/internal/core/system"
	"github.com/survgo/server/internal/net/packet"
	"github.com/survgo/server/internal/world"
	"go.uber.org/zap"
)

// Config tunes the replicator.
type Config struct {
	ViewMargin      float32 // added to every view radius against pop-in
	MaxMessageBytes int
	MaxFailures     int // consecutive failed passes before a client is reported
	Overload        coresys.OverloadConfig
}

// Recorder is told about every buffer handed to a client.
type Recorder interface {
	RecordFrame(tick, client uint64, data []byte)
}

// Delta is what one client is sent in one pass.
type Delta struct {
	Full    []world.Object
	Part    []world.Object
	Deleted []ecs.EntityID
}

// Replicator diffs each client's visibility against what it already knows
// and serializes the difference. It reads dirty markers but never clears
// them; World.Flush does that once all clients were served.
type Replicator struct {
	w   *world.World
	cfg Config
	log *zap.Logger

	clients []*Client
	byID    map[uint64]*Client

	pw       *packet.Writer
	overload *coresys.OverloadMonitor
	now      func() time.Time
	recorder Recorder
	passes   uint64
}

func New(w *world.World, cfg Config, log *zap.Logger) *Replicator {
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = packet.DefaultCap
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	return &Replicator{
		w:        w,
		cfg:      cfg,
		log:      log,
		byID:     make(map[uint64]*Client),
		pw:       packet.NewWriterCap(cfg.MaxMessageBytes),
		overload: coresys.NewOverloadMonitor("replication", cfg.Overload, log),
		now:      time.Now,
	}
}

// SetRecorder attaches a recorder that sees every outgoing update.
func (r *Replicator) SetRecorder(rec Recorder) { r.recorder = rec }

// SetClock replaces the wall clock used to time passes.
func (r *Replicator) SetClock(now func() time.Time) { r.now = now }

func (r *Replicator) Overload() *coresys.OverloadMonitor { return r.overload }

func (r *Replicator) Passes() uint64 { return r.passes }

func (r *Replicator) Len() int { return len(r.clients) }

// AddClient appends a client. Clients are served in the order they were
// added.
func (r *Replicator) AddClient(c *Client) error {
	if _, dup := r.byID[c.id]; dup {
		return fmt.Errorf("replication client %d already added", c.id)
	}
	r.clients = append(r.clients, c)
	r.byID[c.id] = c
	return nil
}

// RemoveClient drops a client and its known set.
func (r *Replicator) RemoveClient(id uint64) bool {
	c, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	if i := slices.Index(r.clients, c); i >= 0 {
		r.clients = slices.Delete(r.clients, i, i+1)
	}
	return true
}

// Each visits clients in service order.
func (r *Replicator) Each(fn func(*Client)) {
	for _, c := range r.clients {
		fn(c)
	}
}

func (r *Replicator) Client(id uint64) (*Client, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Diff computes the client's new visibility set, compares it against the
// set from the previous pass and stores the new set.
func (r *Replicator) Diff(c *Client) Delta {
	center, radius := c.view()
	next := c.next
	clear(next)
	for _, o := range r.w.Grid().IntersectCircle(center, radius+r.cfg.ViewMargin) {
		next[o.ID()] = o
	}
	if p := c.player; p != nil && p.Live() {
		next[p.ID()] = p
	}

	var d Delta
	for id, o := range next {
		_, known := c.known[id]
		switch {
		case !known || r.w.IsFullDirty(id):
			d.Full = append(d.Full, o)
		case r.w.IsPartDirty(id):
			d.Part = append(d.Part, o)
		}
	}
	for id := range c.known {
		if _, still := next[id]; !still {
			d.Deleted = append(d.Deleted, id)
		}
	}
	c.known, c.next = next, c.known

	byID := func(a, b world.Object) int { return int(a.ID()) - int(b.ID()) }
	slices.SortFunc(d.Full, byID)
	slices.SortFunc(d.Part, byID)
	slices.Sort(d.Deleted)
	return d
}

// Pass serves every client once and returns the ids of clients that have
// failed MaxFailures passes in a row. Failures of one client never affect
// another.
func (r *Replicator) Pass(tick uint64) []uint64 {
	start := r.now()
	var failing []uint64
	for _, c := range r.clients {
		if err := r.serve(tick, c); err != nil {
			c.failures++
			c.MarkResync()
			r.log.Warn("replication failed for client",
				zap.Uint64("client", c.id),
				zap.Int("failures", c.failures),
				zap.Error(err),
			)
			if c.failures >= r.cfg.MaxFailures {
				failing = append(failing, c.id)
			}
			continue
		}
		c.failures = 0
	}
	r.passes++
	r.overload.Observe(tick, r.now().Sub(start))
	return failing
}

func (r *Replicator) serve(tick uint64, c *Client) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("replication panic recovered",
				zap.Uint64("client", c.id),
				zap.Any("panic", rec),
				zap.StackSkip("stack", 2),
			)
			err = fmt.Errorf("replication panic: %v", rec)
		}
	}()
	d := r.Diff(c)
	r.pw.Reset()
	r.encode(r.pw, c, d)
	if err := r.pw.Err(); err != nil {
		return fmt.Errorf("encode update (%d full, %d part): %w", len(d.Full), len(d.Part), err)
	}
	buf := r.pw.Copy()
	c.sink.Send(buf)
	if r.recorder != nil {
		r.recorder.RecordFrame(tick, c.id, buf)
	}
	c.fresh = false
	c.resync = false
	return nil
}

// encode writes one MsgUpdate: flags, then each optional section in flag
// order.
func (r *Replicator) encode(pw *packet.Writer, c *Client, d Delta) {
	w := r.w
	var flags uint16
	if c.resync {
		flags |= packet.UpdResync
	}
	if len(d.Deleted) > 0 {
		flags |= packet.UpdDeleted
	}
	if len(d.Full) > 0 {
		flags |= packet.UpdFull
	}
	var pid ecs.EntityID
	if c.player != nil && c.player.Live() {
		pid = c.player.ID()
	}
	if c.fresh || pid != c.sentPlayer {
		flags |= packet.UpdActivePlayer
	}
	if pid != 0 && (c.fresh || c.player.LocalDirty()) {
		flags |= packet.UpdLocalData
	}
	if c.fresh || w.Gas.Dirty() {
		flags |= packet.UpdGas
	}
	if c.fresh || w.Gas.ProgressDirty() {
		flags |= packet.UpdGasProgress
	}
	if c.fresh || w.AliveDirty() {
		flags |= packet.UpdAliveCount
	}

	pw.WriteC(packet.MsgUpdate)
	pw.WriteH(flags)
	if flags&packet.UpdDeleted != 0 {
		pw.WriteH(uint16(len(d.Deleted)))
		for _, id := range d.Deleted {
			pw.WriteH(uint16(id))
		}
	}
	if flags&packet.UpdFull != 0 {
		pw.WriteH(uint16(len(d.Full)))
		for _, o := range d.Full {
			w.WriteFull(pw, o)
		}
	}
	pw.WriteH(uint16(len(d.Part)))
	for _, o := range d.Part {
		w.WritePart(pw, o)
	}
	if flags&packet.UpdActivePlayer != 0 {
		pw.WriteH(uint16(pid))
		c.sentPlayer = pid
	}
	if flags&packet.UpdLocalData != 0 {
		w.WriteLocal(pw, c.player)
	}
	if flags&packet.UpdGas != 0 {
		w.WriteGas(pw)
	}
	if flags&packet.UpdGasProgress != 0 {
		w.WriteGasProgress(pw)
	}
	if flags&packet.UpdAliveCount != 0 {
		pw.WriteC(uint8(min(w.AliveCount(), 255)))
	}
}
