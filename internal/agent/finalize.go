package agent

import "elga/internal/wireproto"

// FinalizeGraphBatch drains update_set, §4.6.3: each queued update is
// applied locally (re-routing through ChangeEdge, which itself forwards
// out-of-shard updates), and its symmetric OUT-flipped counterpart is
// resolved and either applied locally or queued for its owner.
func (a *Agent) FinalizeGraphBatch() {
	perDest := make(map[uint64][]wireproto.Update)

	pending := a.updateSet
	a.updateSet = nil

	for _, u := range pending {
		a.ChangeEdge(u, true)

		sym := wireproto.Update{
			Edge:      wireproto.Edge{Src: u.Edge.Src, Dst: u.Edge.Dst},
			Direction: u.Direction.Flip(),
			Insert:    u.Insert,
		}
		owner, _ := a.FindAgent(sym.Edge, sym.Direction, true, 0, false)
		if owner == a.Self.Serial() {
			a.ChangeEdge(sym, false)
			continue
		}
		perDest[owner] = append(perDest[owner], sym)
	}

	a.dispatchSendUpdates(perDest, wireproto.FlagOutSymmetric)
	a.flushMoves()
}
