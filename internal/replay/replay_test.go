package replay

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func fixedClock() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestRecordAndReadBack(t *testing.T) {
	root := t.TempDir()
	rec, err := NewRecorder(root, "test match!", 30, fixedClock, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	if filepath.Base(rec.Dir()) != "testmatch-20240501T120000Z" {
		t.Fatalf("unexpected dir %q", rec.Dir())
	}

	frames := []Frame{
		{Tick: 1, Client: 7, Data: []byte{102, 0, 1}},
		{Tick: 1, Client: 8, Data: []byte{102}},
		{Tick: 2, Client: 7, Data: bytes.Repeat([]byte{0xAB}, 5000)},
		{Tick: 3, Client: 9, Data: []byte{}},
	}
	for _, f := range frames {
		rec.RecordFrame(f.Tick, f.Client, f.Data)
	}
	rec.RecordEvent(1, "join", map[string]any{"session": 7, "name": "alice"})
	rec.RecordEvent(3, "kill", map[string]any{"killer": 1, "victim": 2})
	if rec.Frames() != uint64(len(frames)) {
		t.Fatalf("frames = %d", rec.Frames())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second close must be a no-op: %v", err)
	}

	rd, err := Open(rec.Dir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rd.Close()
	if rd.Manifest.Frames != uint64(len(frames)) || len(rd.Manifest.FramesSum) != 64 {
		t.Fatalf("manifest must carry count and checksum after close: %+v", rd.Manifest)
	}
	if rd.Manifest.TickRate != 30 || rd.Manifest.Match != "testmatch" {
		t.Fatalf("manifest = %+v", rd.Manifest)
	}
	for i, want := range frames {
		got, err := rd.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if got.Tick != want.Tick || got.Client != want.Client || !bytes.Equal(got.Data, want.Data) {
			t.Fatalf("frame %d = tick %d client %d len %d", i, got.Tick, got.Client, len(got.Data))
		}
	}
	if _, err := rd.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after last frame, got %v", err)
	}

	evs, err := rd.Events()
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evs) != 2 || evs[0].Type != "join" || evs[1].Tick != 3 {
		t.Fatalf("events = %+v", evs)
	}
	if evs[0].Fields["name"] != "alice" {
		t.Fatalf("event fields lost: %+v", evs[0].Fields)
	}
}

func TestChecksumMismatch(t *testing.T) {
	rec, err := NewRecorder(t.TempDir(), "m", 30, fixedClock, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.RecordFrame(1, 1, []byte{102, 1, 2, 3})
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rd, err := Open(rec.Dir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	m := rd.Manifest
	rd.Close()
	m.FramesSum = strings.Repeat("0", 64)
	if err := writeManifest(rec.Dir(), m); err != nil {
		t.Fatalf("rewrite manifest: %v", err)
	}

	rd, err = Open(rec.Dir())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rd.Close()
	if _, err := rd.Next(); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if _, err := rd.Next(); !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
}

func TestRecordAfterCloseIsIgnored(t *testing.T) {
	rec, err := NewRecorder(t.TempDir(), "m", 30, fixedClock, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Close()
	rec.RecordFrame(1, 1, []byte{1})
	rec.RecordEvent(1, "late", nil)
	if rec.Frames() != 0 {
		t.Fatalf("closed recorder must drop frames")
	}
}

func TestOpenMissingManifest(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestNewRecorderNeedsRoot(t *testing.T) {
	if _, err := NewRecorder("", "m", 30, nil, nil); err == nil {
		t.Fatalf("empty root must be rejected")
	}
}
