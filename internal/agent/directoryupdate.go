package agent

import "elga/internal/wireproto"

// HandleDirectoryUpdate applies a changed directory snapshot, §4.6.4:
// rebuild the ring, then re-home any vertex whose neighbors now belong to
// a different agent.
func (a *Agent) HandleDirectoryUpdate(d wireproto.DirectoryUpdate) {
	a.UpdateAgents(d.Agents)

	moved := make(map[uint64][]wireproto.Update)

	for v, vs := range a.vertices {
		vs.In = a.rehome(v, vs.In, wireproto.In, moved)
		vs.Out = a.rehome(v, vs.Out, wireproto.Out, moved)
		if !vs.hasNeighbors() {
			a.localNV--
			delete(a.vertices, v)
		}
	}

	if len(moved) == 0 {
		return
	}
	a.setState(WaitEdgeMove)
	a.dispatchSendUpdates(moved, wireproto.FlagEdgeMove)
}

// rehome partitions local vertex v's neighbor list (held under dir) into
// "still mine" (kept) and "move to X" (appended to moved[X] and dropped
// locally, with nV/nE adjusted).
func (a *Agent) rehome(v uint64, neighbors []uint64, dir wireproto.Direction, moved map[uint64][]wireproto.Update) []uint64 {
	kept := neighbors[:0]
	for _, n := range neighbors {
		edge := wireproto.Edge{Src: n, Dst: v}
		if dir == wireproto.Out {
			edge = wireproto.Edge{Src: v, Dst: n}
		}
		owner, _ := a.FindAgent(edge, dir, true, 0, false)
		if owner == a.Self.Serial() {
			kept = append(kept, n)
			continue
		}
		if dir == wireproto.In {
			a.localNE--
		}
		moved[owner] = append(moved[owner], wireproto.Update{Edge: edge, Direction: dir, Insert: true})
	}
	return kept
}
