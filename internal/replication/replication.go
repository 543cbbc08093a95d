// Package replication implements the replication map of §4.1: a function
// from key to replica count, backed by nothing, a Count-Min sketch, or a
// Count-Sketch.
package replication

import "elga/internal/sketch"

// Map is the replication-count lookup used by the consistent hasher's
// Find. Query must always return at least 1.
type Map interface {
	Query(key uint64) int
}

// None always replicates to exactly one agent.
type None struct{}

func (None) Query(uint64) int { return 1 }

// CountMinBacked derives replica count from a shared Count-Min sketch:
// count/threshold + 1, so a key must clear threshold hits before gaining a
// second replica.
type CountMinBacked struct {
	Sketch    *sketch.CountMin
	Threshold int32
}

func (m CountMinBacked) Query(key uint64) int {
	if m.Threshold <= 0 {
		return 1
	}
	return int(m.Sketch.Query(key)/m.Threshold) + 1
}

// CountSketchBacked mirrors CountMinBacked over a Count-Sketch.
type CountSketchBacked struct {
	Sketch    *sketch.CountSketch
	Threshold int32
}

func (m CountSketchBacked) Query(key uint64) int {
	if m.Threshold <= 0 {
		return 1
	}
	n := m.Sketch.Query(key)
	if n < 0 {
		n = 0
	}
	return int(n/m.Threshold) + 1
}
