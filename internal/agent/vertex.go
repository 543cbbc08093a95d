package agent

import (
	"elga/internal/algorithm"
	"elga/internal/wireproto"
)

// VertexStorage is one locally-owned vertex's full state (§3/§4.6): its
// two neighbor lists plus the algorithm's opaque LocalStorage blob.
type VertexStorage struct {
	Local []byte
	State algorithm.VertexState
	In    []uint64
	Out   []uint64
}

// hasNeighbors reports whether the vertex still has any edge, the
// condition change_edge's delete path uses to decide whether to erase
// the vertex entirely (§4.6.1).
func (v *VertexStorage) hasNeighbors() bool {
	return len(v.In) > 0 || len(v.Out) > 0
}

// appendNeighbor adds n to the IN or OUT list per direction.
func (v *VertexStorage) appendNeighbor(dir wireproto.Direction, n uint64) {
	if dir == wireproto.In {
		v.In = append(v.In, n)
	} else {
		v.Out = append(v.Out, n)
	}
}

// removeNeighbor does swap-and-pop removal (order irrelevant, §4.6.1) and
// reports whether n was found.
func (v *VertexStorage) removeNeighbor(dir wireproto.Direction, n uint64) bool {
	list := &v.In
	if dir == wireproto.Out {
		list = &v.Out
	}
	for i, x := range *list {
		if x == n {
			last := len(*list) - 1
			(*list)[i] = (*list)[last]
			*list = (*list)[:last]
			return true
		}
	}
	return false
}
