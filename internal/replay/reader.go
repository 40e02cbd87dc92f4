package replay

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

// ErrChecksum is returned at the end of a frame stream whose content does
// not match the manifest.
var ErrChecksum = errors.New("replay: frame checksum mismatch")

// Frame is one recorded update buffer.
type Frame struct {
	Tick   uint64
	Client uint64
	Data   []byte
}

// Reader walks the frames of a recording in write order.
type Reader struct {
	Manifest Manifest

	dir  string
	file *os.File
	dec  *zstd.Decoder
	r    *bufio.Reader
	sum  hash.Hash
	n    uint64
	hdr  [frameHeaderSize]byte
}

// Open reads the manifest in dir and opens its frame stream.
func Open(dir string) (*Reader, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.FramesPath == "" {
		m.FramesPath = FramesFile
	}
	f, err := os.Open(filepath.Join(dir, m.FramesPath))
	if err != nil {
		return nil, fmt.Errorf("open frames: %w", err)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	sum, err := blake2b.New256(nil)
	if err != nil {
		dec.Close()
		f.Close()
		return nil, err
	}
	return &Reader{Manifest: m, dir: dir, file: f, dec: dec, r: bufio.NewReader(dec), sum: sum}, nil
}

// Next returns the next frame or io.EOF after the last one. When the
// manifest carries a checksum, reaching the end verifies it and reports
// ErrChecksum instead of io.EOF on mismatch.
func (rd *Reader) Next() (Frame, error) {
	if _, err := io.ReadFull(rd.r, rd.hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("truncated frame header: %w", err)
		}
		if errors.Is(err, io.EOF) {
			if verr := rd.verify(); verr != nil {
				return Frame{}, verr
			}
		}
		return Frame{}, err
	}
	fr := Frame{
		Tick:   binary.LittleEndian.Uint64(rd.hdr[0:8]),
		Client: binary.LittleEndian.Uint64(rd.hdr[8:16]),
		Data:   make([]byte, binary.LittleEndian.Uint32(rd.hdr[16:20])),
	}
	if _, err := io.ReadFull(rd.r, fr.Data); err != nil {
		return Frame{}, fmt.Errorf("truncated frame at tick %d: %w", fr.Tick, err)
	}
	rd.sum.Write(rd.hdr[:])
	rd.sum.Write(fr.Data)
	rd.n++
	return fr, nil
}

func (rd *Reader) verify() error {
	m := rd.Manifest
	if m.FramesSum == "" {
		return nil
	}
	if rd.n != m.Frames || hex.EncodeToString(rd.sum.Sum(nil)) != m.FramesSum {
		return fmt.Errorf("%w: read %d frames, manifest lists %d", ErrChecksum, rd.n, m.Frames)
	}
	return nil
}

// Events decodes the whole event log of the recording.
func (rd *Reader) Events() ([]Event, error) {
	path := rd.Manifest.EventsPath
	if path == "" {
		path = EventsFile
	}
	f, err := os.Open(filepath.Join(rd.dir, path))
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()

	var out []Event
	dec := json.NewDecoder(snappy.NewReader(f))
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
}

func (rd *Reader) Close() error {
	rd.dec.Close()
	return rd.file.Close()
}
