package packet

import (
	"encoding/binary"
	"errors"
	"math"
	"unicode/utf8"

	"github.com/survgo/server/internal/core/geom"
)

// ErrOverflow is reported once a write would grow the buffer past its cap.
// The error is sticky: all later writes are dropped.
var ErrOverflow = errors.New("packet: buffer overflow")

// DefaultCap bounds a single server message.
const DefaultCap = 64 * 1024

// Writer builds a server message. All multi-byte writes are little-endian.
type Writer struct {
	buf []byte
	cap int
	err error
}

func NewWriter() *Writer {
	return NewWriterCap(DefaultCap)
}

// NewWriterCap returns a writer that refuses to grow beyond limit bytes.
func NewWriterCap(limit int) *Writer {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &Writer{buf: make([]byte, 0, 256), cap: limit}
}

func NewWriterWithType(t byte) *Writer {
	w := NewWriter()
	w.WriteC(t)
	return w
}

// Reset empties the buffer and clears a previous overflow.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.err = nil
}

func (w *Writer) Err() error { return w.err }

func (w *Writer) grow(n int) bool {
	if w.err != nil {
		return false
	}
	if len(w.buf)+n > w.cap {
		w.err = ErrOverflow
		return false
	}
	return true
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	if w.grow(1) {
		w.buf = append(w.buf, v)
	}
}

// WriteH writes 2 bytes.
func (w *Writer) WriteH(v uint16) {
	if w.grow(2) {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	}
}

// WriteD writes 4 bytes.
func (w *Writer) WriteD(v uint32) {
	if w.grow(4) {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	}
}

func (w *Writer) WriteQ(v uint64) {
	if w.grow(8) {
		w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	}
}

func (w *Writer) WriteF32(v float32) {
	w.WriteD(math.Float32bits(v))
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteC(1)
	} else {
		w.WriteC(0)
	}
}

// WriteFlags packs up to 8 booleans into one byte, first argument in bit 0.
func (w *Writer) WriteFlags(bits ...bool) {
	var b byte
	for i, v := range bits {
		if v && i < 8 {
			b |= 1 << i
		}
	}
	w.WriteC(b)
}

// WriteFloat quantises v from [min, max] into 8 or 16 bits.
func (w *Writer) WriteFloat(v, min, max float32, bits int) {
	q := quantize(v, min, max, bits)
	if bits <= 8 {
		w.WriteC(byte(q))
		return
	}
	w.WriteH(uint16(q))
}

// WriteVec writes a position quantised into the rectangle [min, max].
func (w *Writer) WriteVec(v, min, max geom.Vec2, bits int) {
	w.WriteFloat(v.X, min.X, max.X, bits)
	w.WriteFloat(v.Y, min.Y, max.Y, bits)
}

// WriteUnitVec writes a direction as a quantised angle.
func (w *Writer) WriteUnitVec(v geom.Vec2, bits int) {
	a := float32(math.Atan2(float64(v.Y), float64(v.X)))
	w.WriteFloat(a, -math.Pi, math.Pi, bits)
}

// WriteS writes a length-prefixed UTF-8 string of at most 255 bytes. Longer
// strings are cut at a rune boundary.
func (w *Writer) WriteS(s string) {
	if len(s) > 255 {
		n := 255
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	if w.grow(1 + len(s)) {
		w.buf = append(w.buf, byte(len(s)))
		w.buf = append(w.buf, s...)
	}
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	if w.grow(len(b)) {
		w.buf = append(w.buf, b...)
	}
}

// ReserveH writes a 2-byte placeholder and returns its offset for PatchH.
func (w *Writer) ReserveH() int {
	off := len(w.buf)
	w.WriteH(0)
	return off
}

// PatchH overwrites a placeholder written by ReserveH.
func (w *Writer) PatchH(off int, v uint16) {
	if w.err != nil || off+2 > len(w.buf) {
		return
	}
	binary.LittleEndian.PutUint16(w.buf[off:], v)
}

// Bytes returns the buffer. The slice is reused after Reset.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Copy returns a copy of the buffer that survives Reset.
func (w *Writer) Copy() []byte {
	return append([]byte(nil), w.buf...)
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func quantize(v, min, max float32, bits int) uint32 {
	if bits <= 8 {
		bits = 8
	} else {
		bits = 16
	}
	steps := float32(uint32(1)<<bits - 1)
	if max <= min || v != v {
		return 0
	}
	t := (v - min) / (max - min)
	t = geom.Clamp(t, 0, 1)
	return uint32(t*steps + 0.5)
}

func dequantize(q uint32, min, max float32, bits int) float32 {
	if bits <= 8 {
		bits = 8
	} else {
		bits = 16
	}
	steps := float32(uint32(1)<<bits - 1)
	return min + (max-min)*float32(q)/steps
}
