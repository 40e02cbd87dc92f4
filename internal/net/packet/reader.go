package packet

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/survgo/server/internal/core/geom"
)

// ErrShortRead is reported when a read runs past the end of the payload.
var ErrShortRead = errors.New("packet: short read")

// Reader reads fields written by Writer. Byte 0 is always the message type.
// Reads past the end return zero values and set a sticky ErrShortRead.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	r := &Reader{data: data, off: 1}
	if len(data) == 0 {
		r.off = 0
		r.err = ErrShortRead
	}
	return r
}

func (r *Reader) Type() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

func (r *Reader) Err() error { return r.err }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = ErrShortRead
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) ReadC() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadH() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadD() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadQ() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) ReadF32() float32 {
	return math.Float32frombits(r.ReadD())
}

func (r *Reader) ReadBool() bool {
	return r.ReadC() != 0
}

// ReadFlags unpacks n booleans written by WriteFlags.
func (r *Reader) ReadFlags(n int) []bool {
	b := r.ReadC()
	out := make([]bool, n)
	for i := 0; i < n && i < 8; i++ {
		out[i] = b&(1<<i) != 0
	}
	return out
}

func (r *Reader) ReadFloat(min, max float32, bits int) float32 {
	var q uint32
	if bits <= 8 {
		q = uint32(r.ReadC())
	} else {
		q = uint32(r.ReadH())
	}
	return dequantize(q, min, max, bits)
}

func (r *Reader) ReadVec(min, max geom.Vec2, bits int) geom.Vec2 {
	x := r.ReadFloat(min.X, max.X, bits)
	y := r.ReadFloat(min.Y, max.Y, bits)
	return geom.V(x, y)
}

func (r *Reader) ReadUnitVec(bits int) geom.Vec2 {
	a := float64(r.ReadFloat(-math.Pi, math.Pi, bits))
	return geom.V(float32(math.Cos(a)), float32(math.Sin(a)))
}

func (r *Reader) ReadS() string {
	n := int(r.ReadC())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// ReadBytes reads n raw bytes into a fresh slice.
func (r *Reader) ReadBytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}
