package algorithm

import "fmt"

// WCC is label propagation toward the minimum reachable vertex id
// (the standard Pregel weakly-connected-components recipe): LocalStorage
// is the current component-id guess, VertexNotification propagates it to
// every neighbor (both directions, since connectivity is undirected),
// ReplicaLocalStorage keeps replicas agreeing on the same guess.
type WCC struct{}

func NewWCC() *WCC { return &WCC{} }

func (w *WCC) Name() string { return "WCC" }

func (w *WCC) Run(vertex uint64, local []byte, neighbors Neighbors, globalNV uint64, in Inbox) ([]byte, Outcome) {
	best := vertex
	if len(local) == 8 {
		best = leU64(local)
	}

	changed := false
	for _, msg := range in.Notifications {
		if v := leU64(msg); v < best {
			best = v
			changed = true
		}
	}

	out := Outcome{NextState: Inactive}
	if changed || len(local) == 0 {
		out.NextState = Active
		out.NotifyOut = le64(best)
		out.NotifyIn = le64(best)
		out.NotifyReplica = le64(best)
	}
	return le64(best), out
}

func (w *WCC) ResetState()  {}
func (w *WCC) ResetOutput() {}

func (w *WCC) Save(vertex uint64, local []byte) string {
	return fmt.Sprintf("%d %d\n", vertex, idOf(local, vertex))
}

func (w *WCC) DumpOVNState(vertex uint64, local []byte) []byte { return le64(idOf(local, vertex)) }
func (w *WCC) SetActive(vertex uint64, vn []byte) []byte       { return le64(idOf(vn, vertex)) }
func (w *WCC) SetRepActive(vertex uint64, rs []byte) []byte    { return le64(idOf(rs, vertex)) }
func (w *WCC) SkipRepWait() bool                               { return false }
func (w *WCC) QueryRespSize() int                              { return 8 }
func (w *WCC) NotificationSize() int                           { return 8 }
func (w *WCC) ReplicaSize() int                                { return 8 }
func (w *WCC) Query(vertex uint64, local []byte) []byte        { return le64(idOf(local, vertex)) }
func (w *WCC) SetStart(vertex uint64) []byte                   { return le64(vertex) }

func idOf(b []byte, fallback uint64) uint64 {
	if len(b) != 8 {
		return fallback
	}
	return leU64(b)
}
