package agent

import (
	"elga/internal/algorithm"
	"elga/internal/config"
	"elga/internal/wireproto"
)

// Discipline is one of the three interchangeable process_vertices
// strategies of §4.6.5, selected once at startup from config.
type Discipline interface {
	Name() string
	// TracksActiveSet reports whether change_edge should maintain an
	// explicit active-vertex set (true for LBSP/FULL; BSP visits every
	// vertex every iteration regardless of activity).
	TracksActiveSet() bool
	// RunSuperstep drives one superstep/iteration of processing and
	// reports whether the agent has no remaining work this iteration
	// (ready to send READY_SYNC and join the barrier).
	RunSuperstep(a *Agent) (doneThisIteration bool)
}

func disciplineFor(d config.SuperstepDiscipline) Discipline {
	switch d {
	case config.LBSP:
		return lbsp{}
	case config.FULL:
		return full{}
	default:
		return bsp{}
	}
}

// bsp is the synchronous Bulk Synchronous Parallel discipline: every
// vertex runs every iteration regardless of activity; outgoing
// notifications are grouped by destination agent and sent as one OUT_VN
// per destination, replica contributions as one RV per replica
// destination (§4.6.5).
type bsp struct{}

func (bsp) Name() string             { return "BSP" }
func (bsp) TracksActiveSet() bool    { return false }

func (bsp) RunSuperstep(a *Agent) bool {
	a.iteration++
	outByDest := make(map[uint64][]wireproto.VertexNotification)
	repByDest := make(map[uint64][]wireproto.ReplicaContribution)

	inbox := a.vnInbox[a.iteration-1]

	for v, vs := range a.vertices {
		neighbors := algorithm.Neighbors{In: vs.In, Out: vs.Out}
		in := algorithm.Inbox{Notifications: inbox[v]}
		newLocal, out := a.algo.Run(v, vs.Local, neighbors, a.globalNV, in)
		vs.Local = newLocal
		vs.State = out.NextState

		if out.NotifyOut != nil {
			a.routeNotifications(v, vs.Out, out.NotifyOut, outByDest)
		}
		if out.NotifyIn != nil {
			a.routeNotifications(v, vs.In, out.NotifyIn, outByDest)
		}
		if out.NotifyReplica != nil {
			for _, rep := range a.ReplicaAgents(v) {
				if rep == a.Self.Serial() {
					continue
				}
				repByDest[rep] = append(repByDest[rep], wireproto.ReplicaContribution{Iteration: a.iteration, Vertex: v, Payload: out.NotifyReplica})
			}
		}
	}
	delete(a.vnInbox, a.iteration-1)

	a.sendOutVN(outByDest)
	a.sendRV(repByDest)

	a.vnRemaining[a.iteration] = len(outByDest)
	return len(outByDest) == 0
}

func (a *Agent) routeNotifications(v uint64, peers []uint64, payload []byte, outByDest map[uint64][]wireproto.VertexNotification) {
	for _, p := range peers {
		owner, _ := a.FindAgent(wireproto.Edge{Src: v, Dst: p}, wireproto.Out, true, 0, false)
		if owner == a.Self.Serial() {
			a.deliverLocalNotification(p, payload)
			continue
		}
		outByDest[owner] = append(outByDest[owner], wireproto.VertexNotification{Vertex: p, Payload: payload})
	}
}

func (a *Agent) deliverLocalNotification(v uint64, payload []byte) {
	next := a.iteration
	if a.vnInbox[next] == nil {
		a.vnInbox[next] = make(map[uint64][][]byte)
	}
	a.vnInbox[next][v] = append(a.vnInbox[next][v], payload)
}

func (a *Agent) sendOutVN(byDest map[uint64][]wireproto.VertexNotification) {
	for dest, notifications := range byDest {
		w := wireproto.NewWriter(4 + len(notifications)*(8+a.algo.NotificationSize()))
		wireproto.PackOutVN(w, wireproto.OutVN{HasIteration: true, Iteration: a.iteration, Notifications: notifications})
		if err := a.Chatter.Push(a.agentAddr(dest, wireproto.Pull), wireproto.Message{Kind: wireproto.KindOutVN, Body: w.Bytes()}.Pack()); err != nil {
			a.Log.Printf("OUT_VN to %x failed: %v", dest, err)
		}
	}
}

func (a *Agent) sendRV(byDest map[uint64][]wireproto.ReplicaContribution) {
	for dest, contribs := range byDest {
		w := wireproto.NewWriter(8 + len(contribs)*(12+a.algo.ReplicaSize()))
		wireproto.PackRV(w, wireproto.RV{From: a.Self, Contribs: contribs})
		if err := a.Chatter.Push(a.agentAddr(dest, wireproto.Pull), wireproto.Message{Kind: wireproto.KindRV, Body: w.Bytes()}.Pack()); err != nil {
			a.Log.Printf("RV to %x failed: %v", dest, err)
		}
	}
}

// lbsp keeps an explicit active set but otherwise runs bsp's superstep
// unchanged: every vertex is visited each iteration, a notification for a
// neighbor owned by this same agent is delivered locally without a message,
// and an OUT_VN goes only to agents that have at least one notification
// this iteration; agents with none receive no OUT_VN (§4.6.5).
type lbsp struct{ bsp }

func (lbsp) Name() string          { return "LBSP" }
func (lbsp) TracksActiveSet() bool { return true }

// full runs BSP's per-iteration mechanics restricted to the current active
// set (§4.6.5): each call advances the iteration counter as bsp does, runs
// only the vertices in a.active, and drops those that end Inactive or
// Dormant from the set. Notifications are not buffered per iteration; each
// one is consumed by the first pass that runs after it is delivered.
type full struct{}

func (full) Name() string          { return "FULL" }
func (full) TracksActiveSet() bool { return true }

func (f full) RunSuperstep(a *Agent) bool {
	a.iteration++
	outByDest := make(map[uint64][]wireproto.VertexNotification)
	repByDest := make(map[uint64][]wireproto.ReplicaContribution)
	inbox := a.vnInbox[a.iteration-1]

	for v := range a.active {
		vs, ok := a.vertices[v]
		if !ok {
			delete(a.active, v)
			continue
		}
		neighbors := algorithm.Neighbors{In: vs.In, Out: vs.Out}
		in := algorithm.Inbox{Notifications: inbox[v]}
		newLocal, out := a.algo.Run(v, vs.Local, neighbors, a.globalNV, in)
		vs.Local = newLocal
		vs.State = out.NextState
		if out.NextState == algorithm.Inactive || out.NextState == algorithm.Dormant {
			delete(a.active, v)
		}

		if out.NotifyOut != nil {
			a.routeNotifications(v, vs.Out, out.NotifyOut, outByDest)
		}
		if out.NotifyIn != nil {
			a.routeNotifications(v, vs.In, out.NotifyIn, outByDest)
		}
		if out.NotifyReplica != nil {
			for _, rep := range a.ReplicaAgents(v) {
				if rep != a.Self.Serial() {
					repByDest[rep] = append(repByDest[rep], wireproto.ReplicaContribution{Iteration: a.iteration, Vertex: v, Payload: out.NotifyReplica})
				}
			}
		}
	}
	delete(a.vnInbox, a.iteration-1)

	a.sendOutVN(outByDest)
	a.sendRV(repByDest)
	a.vnRemaining[a.iteration] = len(outByDest)
	return len(a.active) == 0 && len(outByDest) == 0
}
