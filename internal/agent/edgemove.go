package agent

import "elga/internal/wireproto"

// flushMoves dispatches every update ChangeEdge queued for a non-owning
// agent since the last flush, §4.6.1/§4.6.7 ("send_move_edges"): whenever
// change_edge resolves an edge to someone else, it defers the network
// round-trip here instead of sending one request per update.
func (a *Agent) flushMoves() {
	if len(a.moves) == 0 {
		return
	}
	pending := a.moves
	a.moves = make(map[uint64][]wireproto.Update)
	a.dispatchSendUpdates(pending, wireproto.FlagEdgeMove)
}
