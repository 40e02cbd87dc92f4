package replay

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const (
	FramesFile   = "frames.bin.zst"
	EventsFile   = "events.jsonl.sz"
	ManifestFile = "manifest.json"

	// frame record header: tick u64, client u64, length u32
	frameHeaderSize = 8 + 8 + 4
)

var matchCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Manifest describes a recorded match directory.
type Manifest struct {
	Version    int    `json:"version"`
	Match      string `json:"match"`
	CreatedAt  string `json:"created_at"`
	TickRate   int    `json:"tick_rate"`
	FramesPath string `json:"frames_path"`
	EventsPath string `json:"events_path"`

	// Written on Close: frame count and BLAKE2b-256 of the uncompressed
	// frame records.
	Frames    uint64 `json:"frames,omitempty"`
	FramesSum string `json:"frames_blake2b,omitempty"`
}

// Event is one line of the event log.
type Event struct {
	Tick   uint64         `json:"tick"`
	At     string         `json:"at"`
	Type   string         `json:"type"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Recorder writes every update buffer handed to a client plus a log of
// match events. A write failure disables the recorder; the match goes on.
type Recorder struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
	log *zap.Logger

	frameFile *os.File
	frames    *zstd.Encoder
	frameBuf  *bufio.Writer
	eventFile *os.File
	events    *snappy.Writer

	manifest Manifest
	sum      hash.Hash

	hdr    [frameHeaderSize]byte
	failed error
	closed bool
	count  uint64
}

// NewRecorder creates <root>/<match>-<timestamp>/ and opens the compressed
// streams inside it.
func NewRecorder(root, match string, tickRate int, clock func() time.Time, log *zap.Logger) (*Recorder, error) {
	if root == "" {
		return nil, errors.New("replay: root directory must be set")
	}
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	name := matchCleaner.ReplaceAllString(match, "")
	if name == "" {
		name = "match"
	}
	created := clock().UTC()
	dir := filepath.Join(root, fmt.Sprintf("%s-%s", name, created.Format("20060102T150405Z")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("replay dir: %w", err)
	}

	manifest := Manifest{
		Version:    1,
		Match:      name,
		CreatedAt:  created.Format(time.RFC3339Nano),
		TickRate:   tickRate,
		FramesPath: FramesFile,
		EventsPath: EventsFile,
	}
	if err := writeManifest(dir, manifest); err != nil {
		return nil, err
	}
	sum, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}

	frameFile, err := os.Create(filepath.Join(dir, FramesFile))
	if err != nil {
		return nil, fmt.Errorf("create frames: %w", err)
	}
	enc, err := zstd.NewWriter(frameFile, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		frameFile.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	eventFile, err := os.Create(filepath.Join(dir, EventsFile))
	if err != nil {
		enc.Close()
		frameFile.Close()
		return nil, fmt.Errorf("create events: %w", err)
	}

	log.Info("replay recording", zap.String("dir", dir))
	return &Recorder{
		manifest:  manifest,
		sum:       sum,
		dir:       dir,
		now:       clock,
		log:       log,
		frameFile: frameFile,
		frames:    enc,
		frameBuf:  bufio.NewWriterSize(enc, 64*1024),
		eventFile: eventFile,
		events:    snappy.NewBufferedWriter(eventFile),
	}, nil
}

// Dir returns the directory the recording lives in.
func (r *Recorder) Dir() string { return r.dir }

// Frames returns how many frames were written so far.
func (r *Recorder) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// RecordFrame appends one update buffer sent to client at tick.
func (r *Recorder) RecordFrame(tick, client uint64, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.failed != nil {
		return
	}
	binary.LittleEndian.PutUint64(r.hdr[0:8], tick)
	binary.LittleEndian.PutUint64(r.hdr[8:16], client)
	binary.LittleEndian.PutUint32(r.hdr[16:20], uint32(len(data)))
	if _, err := r.frameBuf.Write(r.hdr[:]); err != nil {
		r.fail(err)
		return
	}
	if _, err := r.frameBuf.Write(data); err != nil {
		r.fail(err)
		return
	}
	r.sum.Write(r.hdr[:])
	r.sum.Write(data)
	r.count++
}

// RecordEvent appends a JSON line to the event log.
func (r *Recorder) RecordEvent(tick uint64, typ string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.failed != nil {
		return
	}
	line, err := json.Marshal(Event{
		Tick:   tick,
		At:     r.now().UTC().Format(time.RFC3339Nano),
		Type:   typ,
		Fields: fields,
	})
	if err != nil {
		r.log.Warn("replay event not encodable", zap.String("type", typ), zap.Error(err))
		return
	}
	line = append(line, '\n')
	if _, err := r.events.Write(line); err != nil {
		r.fail(err)
	}
}

func (r *Recorder) fail(err error) {
	r.failed = err
	r.log.Error("replay recording stopped", zap.String("dir", r.dir), zap.Error(err))
}

// Close flushes both streams and closes the files. The first error wins.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	keep(r.frameBuf.Flush())
	keep(r.frames.Close())
	keep(r.frameFile.Close())
	keep(r.events.Close())
	keep(r.eventFile.Close())
	if r.failed == nil {
		r.manifest.Frames = r.count
		r.manifest.FramesSum = hex.EncodeToString(r.sum.Sum(nil))
		keep(writeManifest(r.dir, r.manifest))
	}
	if first == nil {
		first = r.failed
	}
	r.log.Info("replay closed", zap.String("dir", r.dir), zap.Uint64("frames", r.count))
	return first
}

func writeManifest(dir string, m Manifest) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), raw, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
