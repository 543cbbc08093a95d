package algorithm

import "fmt"

const infDistance = ^uint64(0)

// BFS computes shortest hop-distance from vertex 0 (the fixed root used by
// the reference's single-source variants): LocalStorage is the current
// distance estimate (infDistance until reached), VertexNotification
// carries the sender's own distance to OUT-neighbors once improved, and
// the receiver adds one.
type BFS struct{}

func NewBFS() *BFS { return &BFS{} }

func (b *BFS) Name() string { return "BFS" }

func distOf(local []byte) uint64 {
	if len(local) != 8 {
		return infDistance
	}
	return leU64(local)
}

func (b *BFS) Run(vertex uint64, local []byte, neighbors Neighbors, globalNV uint64, in Inbox) ([]byte, Outcome) {
	dist := distOf(local)
	if len(local) == 0 && vertex == 0 {
		dist = 0
	}

	improved := false
	for _, msg := range in.Notifications {
		if cand := leU64(msg) + 1; cand < dist {
			dist = cand
			improved = true
		}
	}

	out := Outcome{NextState: Inactive}
	if improved || (len(local) == 0 && vertex == 0) {
		out.NextState = Active
		out.NotifyOut = le64(dist)
	}
	return le64(dist), out
}

func (b *BFS) ResetState()  {}
func (b *BFS) ResetOutput() {}

func (b *BFS) Save(vertex uint64, local []byte) string {
	return fmt.Sprintf("%d %d\n", vertex, distOf(local))
}

func (b *BFS) DumpOVNState(vertex uint64, local []byte) []byte { return le64(distOf(local)) }
func (b *BFS) SetActive(vertex uint64, vn []byte) []byte       { return le64(distOf(vn)) }
func (b *BFS) SetRepActive(vertex uint64, rs []byte) []byte    { return le64(distOf(rs)) }
func (b *BFS) SkipRepWait() bool                               { return true }
func (b *BFS) QueryRespSize() int                              { return 8 }
func (b *BFS) NotificationSize() int                           { return 8 }
func (b *BFS) ReplicaSize() int                                { return 8 }
func (b *BFS) Query(vertex uint64, local []byte) []byte        { return le64(distOf(local)) }
func (b *BFS) SetStart(vertex uint64) []byte {
	if vertex == 0 {
		return le64(0)
	}
	return le64(infDistance)
}
