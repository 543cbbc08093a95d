// Package wireproto is the address & wire codec of §4.3/§6: endpoint
// identity, virtual-agent ids, edges/updates, every message kind, and the
// little-endian packers/unpackers that turn them into bytes.
//
// Everything here is hand-rolled over encoding/binary rather than built on
// a serialization library (protobuf, gob, ...) because §6 pins an exact
// byte-for-byte layout -- no tag bytes, no varints, no padding -- which a
// self-describing wire format cannot reproduce. See DESIGN.md.
package wireproto

import (
	"encoding/binary"
	"fmt"
	"math"
)

func float64bits(v float64) uint64     { return math.Float64bits(v) }
func float64frombits(v uint64) float64 { return math.Float64frombits(v) }

// Writer is a growable little-endian byte cursor, the replacement for the
// teacher's raw bytes.Buffer framing (sdfs.go, fd.go) generalized to every
// message shape in §6.
type Writer struct {
	buf []byte
}

func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) PutU8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) PutBool(v bool) {
	if v {
		w.PutU8(1)
	} else {
		w.PutU8(0)
	}
}

func (w *Writer) PutU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) PutU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) PutU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) PutI32(v int32)     { w.PutU32(uint32(v)) }
func (w *Writer) PutI64(v int64)     { w.PutU64(uint64(v)) }
func (w *Writer) PutF64(v float64)   { w.PutU64(float64bits(v)) }
func (w *Writer) PutBytes(v []byte)  { w.buf = append(w.buf, v...) }
func (w *Writer) Bytes() []byte      { return w.buf }
func (w *Writer) Len() int           { return len(w.buf) }

// Reader is a bounds-checked cursor into a received byte slice. Every
// accessor returns an error instead of panicking: a malformed message is a
// Protocol error (§7) that the caller turns into a fatal at the boundary,
// not a crash inside the codec.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) need(n int) error {
	if r.off+n > len(r.buf) {
		return fmt.Errorf("wireproto: short read: need %d bytes at offset %d, have %d", n, r.off, len(r.buf))
	}
	return nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *Reader) Bool() (bool, error) {
	v, err := r.U8()
	return v != 0, err
}

func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return float64frombits(v), err
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v, nil
}

// Remaining returns how many unread bytes are left -- used to size
// variable-length trailing arrays (UPDATE_EDGES, AGENT_JOIN, ...).
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) AtEnd() bool { return r.off >= len(r.buf) }
