// Package sketch implements the fixed-width frequency tables used to drive
// per-key replication counts (§4.1). Both sketches are W*D grids of signed
// 32-bit counters; W must be a power of two so the row index is a mask, not
// a modulo.
package sketch

import (
	"encoding/binary"
	"fmt"

	"elga/internal/xhash"
)

// CountMin is a fixed W*D table of signed 32-bit counters. count() never
// decrements and query() never errors -- per §4.1 there is no failure mode.
type CountMin struct {
	w, d uint32
	mask uint64
	rows [][]int32
}

// NewCountMin builds a W*D table. W is rounded up to the next power of two.
func NewCountMin(w, d uint32) *CountMin {
	w = nextPow2(w)
	rows := make([][]int32, d)
	for i := range rows {
		rows[i] = make([]int32, w)
	}
	return &CountMin{w: w, d: d, mask: uint64(w - 1), rows: rows}
}

func nextPow2(w uint32) uint32 {
	if w == 0 {
		return 1
	}
	p := uint32(1)
	for p < w {
		p <<= 1
	}
	return p
}

func (c *CountMin) index(key uint64, row uint32) uint64 {
	return xhash.Mix(key^uint64(row)) & c.mask
}

// Count increments one counter per row.
func (c *CountMin) Count(key uint64) {
	for row := uint32(0); row < c.d; row++ {
		c.rows[row][c.index(key, row)]++
	}
}

// Query returns the minimum counter across rows -- the standard CM
// point-query estimator (always an over-estimate, never negative given
// count-only updates).
func (c *CountMin) Query(key uint64) int32 {
	min := c.rows[0][c.index(key, 0)]
	for row := uint32(1); row < c.d; row++ {
		v := c.rows[row][c.index(key, row)]
		if v < min {
			min = v
		}
	}
	return min
}

// Merge adds b's counters into c element-wise. Panics if shapes differ --
// merging sketches of different sizes is a programming error, not a data
// condition.
func (c *CountMin) Merge(b *CountMin) {
	c.mustSameShape(b)
	for row := range c.rows {
		for i := range c.rows[row] {
			c.rows[row][i] += b.rows[row][i]
		}
	}
}

// DisjointMerge takes the element-wise max, appropriate when the two
// sketches are known to have observed disjoint key sets (e.g. one sketch
// per agent being folded into the directory's aggregate).
func (c *CountMin) DisjointMerge(b *CountMin) {
	c.mustSameShape(b)
	for row := range c.rows {
		for i := range c.rows[row] {
			if b.rows[row][i] > c.rows[row][i] {
				c.rows[row][i] = b.rows[row][i]
			}
		}
	}
}

func (c *CountMin) mustSameShape(b *CountMin) {
	if c.w != b.w || c.d != b.d {
		panic(fmt.Sprintf("sketch: shape mismatch %dx%d vs %dx%d", c.w, c.d, b.w, b.d))
	}
}

// Width and Depth report the table shape, needed to size the on-wire
// sketch blob piggybacked on DIRECTORY_UPDATE (§9).
func (c *CountMin) Width() uint32 { return c.w }
func (c *CountMin) Depth() uint32 { return c.d }

// Serialize returns a byte-exact view of the raw counters: D*W signed
// 32-bit little-endian integers, row-major. This is the fixed-size trailing
// blob described in §6/§9.
func (c *CountMin) Serialize() []byte {
	buf := make([]byte, int(c.d)*int(c.w)*4)
	off := 0
	for row := range c.rows {
		for _, v := range c.rows[row] {
			binary.LittleEndian.PutUint32(buf[off:], uint32(v))
			off += 4
		}
	}
	return buf
}

// Deserialize copies bytes back into a freshly-shaped table. The caller
// must know W and D out of band (they are cluster-wide configuration, not
// carried in the blob).
func Deserialize(w, d uint32, buf []byte) (*CountMin, error) {
	w = nextPow2(w)
	want := int(d) * int(w) * 4
	if len(buf) != want {
		return nil, fmt.Errorf("sketch: expected %d bytes, got %d", want, len(buf))
	}
	c := NewCountMin(w, d)
	off := 0
	for row := range c.rows {
		for i := range c.rows[row] {
			c.rows[row][i] = int32(binary.LittleEndian.Uint32(buf[off:]))
			off += 4
		}
	}
	return c, nil
}

// SerializedSize is the byte length Serialize will produce for a W*D table,
// used by receivers to size the trailing blob before reading it.
func SerializedSize(w, d uint32) int {
	return int(nextPow2(w)) * int(d) * 4
}
