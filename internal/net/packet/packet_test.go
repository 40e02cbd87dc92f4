package packet

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/survgo/server/internal/core/geom"
	"go.uber.org/zap/zaptest"
)

func TestWriterReaderPrimitives(t *testing.T) {
	w := NewWriterWithType(MsgPing)
	w.WriteC(7)
	w.WriteH(0xBEEF)
	w.WriteD(0xDEADBEEF)
	w.WriteQ(1 << 40)
	w.WriteF32(1.5)
	w.WriteBool(true)
	w.WriteFlags(true, false, true)
	w.WriteS("héllo")

	r := NewReader(w.Bytes())
	if r.Type() != MsgPing {
		t.Fatalf("type = %d", r.Type())
	}
	if r.ReadC() != 7 || r.ReadH() != 0xBEEF || r.ReadD() != 0xDEADBEEF || r.ReadQ() != 1<<40 {
		t.Fatalf("integer fields mismatch")
	}
	if r.ReadF32() != 1.5 || !r.ReadBool() {
		t.Fatalf("float/bool mismatch")
	}
	flags := r.ReadFlags(3)
	if !flags[0] || flags[1] || !flags[2] {
		t.Fatalf("flags = %v", flags)
	}
	if s := r.ReadS(); s != "héllo" {
		t.Fatalf("string = %q", s)
	}
	if r.Remaining() != 0 || r.Err() != nil {
		t.Fatalf("expected clean end, remaining=%d err=%v", r.Remaining(), r.Err())
	}
}

func TestQuantisedFloats(t *testing.T) {
	cases := []struct {
		v, min, max float32
		bits        int
		tol         float32
	}{
		{0, 0, 1024, 16, 0.02},
		{512.3, 0, 1024, 16, 0.02},
		{1024, 0, 1024, 16, 0.02},
		{-5, 0, 10, 8, 0},    // clamps to min
		{99, 0, 10, 8, 0.05}, // clamps to max
		{0.5, 0, 1, 8, 0.005},
	}
	for _, tc := range cases {
		w := NewWriterWithType(0)
		w.WriteFloat(tc.v, tc.min, tc.max, tc.bits)
		got := NewReader(w.Bytes()).ReadFloat(tc.min, tc.max, tc.bits)
		want := geom.Clamp(tc.v, tc.min, tc.max)
		if float32(math.Abs(float64(got-want))) > tc.tol {
			t.Fatalf("quantise %v [%v,%v]/%d: got %v", tc.v, tc.min, tc.max, tc.bits, got)
		}
	}
}

func TestUnitVecKeepsDirection(t *testing.T) {
	dir := geom.V(0.6, -0.8)
	w := NewWriterWithType(0)
	w.WriteUnitVec(dir, 16)
	got := NewReader(w.Bytes()).ReadUnitVec(16)
	if got.Sub(dir).Len() > 0.001 {
		t.Fatalf("unit vec = %v, want %v", got, dir)
	}
}

func TestWriterOverflowIsSticky(t *testing.T) {
	w := NewWriterCap(4)
	w.WriteH(1)
	w.WriteH(2)
	if w.Err() != nil {
		t.Fatalf("exact fit must not overflow")
	}
	w.WriteC(3)
	if !errors.Is(w.Err(), ErrOverflow) {
		t.Fatalf("expected overflow, got %v", w.Err())
	}
	w.Reset()
	w.WriteC(1)
	if w.Err() != nil || w.Len() != 1 {
		t.Fatalf("reset must clear overflow")
	}
}

func TestStringTruncatesOnRuneBoundary(t *testing.T) {
	w := NewWriterWithType(0)
	w.WriteS(strings.Repeat("é", 200)) // 400 bytes
	s := NewReader(w.Bytes()).ReadS()
	if len(s) > 255 || len(s)%2 != 0 {
		t.Fatalf("bad truncation: %d bytes", len(s))
	}
}

func TestReserveAndPatch(t *testing.T) {
	w := NewWriterWithType(0)
	off := w.ReserveH()
	w.WriteD(1)
	w.PatchH(off, uint16(w.Len()-off-2))
	r := NewReader(w.Bytes())
	if n := r.ReadH(); n != 4 {
		t.Fatalf("patched length = %d", n)
	}
}

func TestShortRead(t *testing.T) {
	r := NewReader([]byte{MsgInput, 1})
	r.ReadC()
	if r.ReadD() != 0 || !errors.Is(r.Err(), ErrShortRead) {
		t.Fatalf("expected short read")
	}
	if r.ReadC() != 0 {
		t.Fatalf("reads after error must return zero")
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	var got byte
	reg.Register(MsgInput, []SessionState{StatePlaying}, func(_ any, r *Reader) {
		got = r.ReadC()
	})
	reg.Register(MsgPing, []SessionState{StatePlaying}, func(any, *Reader) {
		panic("boom")
	})

	if err := reg.Dispatch(nil, StatePlaying, []byte{MsgInput, 9}); err != nil || got != 9 {
		t.Fatalf("dispatch: err=%v got=%d", err, got)
	}
	if err := reg.Dispatch(nil, StateConnected, []byte{MsgInput, 9}); err == nil {
		t.Fatalf("expected state rejection")
	}
	if err := reg.Dispatch(nil, StatePlaying, []byte{200}); err != nil {
		t.Fatalf("unknown types must be ignored, got %v", err)
	}
	if err := reg.Dispatch(nil, StatePlaying, []byte{MsgPing}); err == nil {
		t.Fatalf("expected recovered panic as error")
	}
	if err := reg.Dispatch(nil, StatePlaying, []byte{MsgInput}); !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected short read error, got %v", err)
	}
}
