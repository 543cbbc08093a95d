package agent

import (
	"elga/internal/algorithm"
	"elga/internal/wireproto"
)

// ChangeEdge ingests one update, §4.6.1. countDeg marks a freshly streamed
// edge whose arrival should feed the replication-driving sketch.
func (a *Agent) ChangeEdge(u wireproto.Update, countDeg bool) {
	owner, _ := a.FindAgent(u.Edge, u.Direction, true, 0, false)
	if owner != a.Self.Serial() {
		a.moves[owner] = append(a.moves[owner], u)
		return
	}

	local := u.Edge.Dst
	other := u.Edge.Src
	if u.Direction == wireproto.Out {
		local = u.Edge.Src
		other = u.Edge.Dst
	}

	vs, ok := a.vertices[local]
	if !ok {
		vs = &VertexStorage{}
		a.vertices[local] = vs
	}
	if vs.State != algorithm.Dormant {
		vs.State = algorithm.Active
		if a.discipline.TracksActiveSet() {
			a.active[local] = true
		}
	}

	if u.Insert {
		hadNone := !vs.hasNeighbors()
		vs.appendNeighbor(u.Direction, other)
		if u.Direction == wireproto.In {
			a.localNE++
			a.pendingDeltaNE++
		}
		if hadNone {
			a.localNV++
			a.pendingDeltaNV++
		}
		if countDeg && a.localSketch != nil {
			a.localSketch.Count(local)
			if a.localSketch.Query(local) >= a.repThreshold {
				a.pushSketch = true
			}
		}
		return
	}

	// Delete.
	if vs.removeNeighbor(u.Direction, other) {
		if u.Direction == wireproto.In {
			a.localNE--
			a.pendingDeltaNE--
		}
	}
	if !vs.hasNeighbors() {
		a.localNV--
		replicas := len(a.ReplicaAgents(local))
		if replicas < 1 {
			replicas = 1
		}
		a.pendingDeltaNV -= 1.0 / float64(replicas)
		delete(a.vertices, local)
	}
}
