package agent

import "elga/internal/wireproto"

// SendOutEdges generates the symmetric OUT edge for every IN neighbor of
// every local vertex and dispatches it to that edge's owner, §4.6.2.
// check=true sends the transpose-check variant instead of a real insert.
//
// Agents are single-threaded per §5 (one cooperative loop, blocking only
// on the socket poll), so every SEND_UPDATES request here is issued and
// waited on in turn rather than fanned out across goroutines.
func (a *Agent) SendOutEdges(check bool) {
	perDest := make(map[uint64][]wireproto.Update)

	for v, vs := range a.vertices {
		for _, u := range vs.In {
			edge := wireproto.Edge{Src: u, Dst: v}
			owner, _ := a.FindAgent(edge, wireproto.Out, true, 0, false)
			upd := wireproto.Update{Edge: edge, Direction: wireproto.Out, Insert: true}
			if owner == a.Self.Serial() {
				if !check {
					a.ChangeEdge(upd, false)
				}
				continue
			}
			perDest[owner] = append(perDest[owner], upd)
		}
	}

	flag := wireproto.FlagOutSymmetric
	if check {
		flag = wireproto.FlagTransposeCheck
	}
	a.dispatchSendUpdates(perDest, flag)
	a.flushMoves()
}

// dispatchSendUpdates issues one SEND_UPDATES request per destination,
// each awaited for its ACK_UPDATES reply before the next is sent. When
// perDest is empty there is no ack to wait on, so the READY_NV_NE barrier
// step completes immediately instead (agent.cpp:1004-1007); when
// non-empty, sendUpdatesTo's own completion check fires exactly once, on
// the ack that brings update_acks_needed to zero. A transpose check never
// feeds the barrier either way (agent.cpp:1004-1009).
func (a *Agent) dispatchSendUpdates(perDest map[uint64][]wireproto.Update, flag wireproto.SendUpdatesFlag) {
	if flag == wireproto.FlagTransposeCheck {
		for dest, updates := range perDest {
			a.sendUpdatesTo(dest, flag, updates)
		}
		return
	}

	if len(perDest) == 0 {
		if a.updateAcksNeeded == 0 {
			a.doneWaitingReadyNVNE()
		}
		return
	}
	a.updateAcksNeeded += len(perDest)
	for dest, updates := range perDest {
		a.sendUpdatesTo(dest, flag, updates)
	}
}

func (a *Agent) sendUpdatesTo(dest uint64, flag wireproto.SendUpdatesFlag, updates []wireproto.Update) {
	w := wireproto.NewWriter(9 + len(updates)*24)
	wireproto.PackSendUpdates(w, wireproto.SendUpdates{Flag: flag, From: a.Self, Updates: updates})
	_, err := a.Chatter.Request(a.agentAddr(dest, wireproto.Request), wireproto.Message{Kind: wireproto.KindSendUpdates, Body: w.Bytes()}.Pack())
	if err != nil {
		a.Log.Printf("SEND_UPDATES to %x failed: %v", dest, err)
	}

	if flag == wireproto.FlagTransposeCheck {
		return
	}

	a.updateAcksNeeded--
	if a.updateAcksNeeded == 0 {
		if a.state == WaitEdgeMove {
			a.setState(Idle)
		} else {
			a.doneWaitingReadyNVNE()
		}
	}
}
