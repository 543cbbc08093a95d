package algorithm

import (
	"fmt"
	"math"
)

const defaultDamping = 0.85

// PageRank mirrors the teacher's worker/pagerank.go rank update
// (0.15/N + 0.85*sum(incoming)) generalized off the fixed 30-superstep cap
// into the iteration-agnostic BSP/LBSP/FULL disciplines: LocalStorage is
// just the current rank, VertexNotification is the rank share sent to each
// OUT-neighbor, ReplicaLocalStorage mirrors the rank for replica
// agreement.
type PageRank struct {
	damping float64
}

func NewPageRank(damping float64) *PageRank {
	if damping <= 0 || damping >= 1 {
		damping = defaultDamping
	}
	return &PageRank{damping: damping}
}

func (p *PageRank) Name() string { return "PAGERANK" }

func rankOf(local []byte) float64 {
	if len(local) != 8 {
		return 0
	}
	return math.Float64frombits(leU64(local))
}

func rankBytes(v float64) []byte {
	return le64(math.Float64bits(v))
}

func (p *PageRank) Run(vertex uint64, local []byte, neighbors Neighbors, globalNV uint64, in Inbox) ([]byte, Outcome) {
	rank := rankOf(local)
	if rank == 0 && len(local) == 0 {
		rank = 1.0 / float64(max64(globalNV, 1))
	}

	var sum float64
	for _, msg := range in.Notifications {
		sum += rankOf(msg)
	}
	if len(in.Notifications) > 0 || len(neighbors.In) == 0 {
		rank = (1-p.damping)/float64(max64(globalNV, 1)) + p.damping*sum
	}

	share := rank
	if n := len(neighbors.Out); n > 0 {
		share = rank / float64(n)
	}

	return rankBytes(rank), Outcome{
		NextState: Active,
		NotifyOut: rankBytes(share),
	}
}

func (p *PageRank) ResetState()  {}
func (p *PageRank) ResetOutput() {}

func (p *PageRank) Save(vertex uint64, local []byte) string {
	return fmt.Sprintf("%d %g\n", vertex, rankOf(local))
}

func (p *PageRank) DumpOVNState(vertex uint64, local []byte) []byte { return rankBytes(rankOf(local)) }

func (p *PageRank) SetActive(vertex uint64, vn []byte) []byte    { return rankBytes(rankOf(vn)) }
func (p *PageRank) SetRepActive(vertex uint64, rs []byte) []byte { return rankBytes(rankOf(rs)) }
func (p *PageRank) SkipRepWait() bool                            { return true }
func (p *PageRank) QueryRespSize() int                           { return 8 }
func (p *PageRank) NotificationSize() int                        { return 8 }
func (p *PageRank) ReplicaSize() int                             { return 8 }
func (p *PageRank) Query(vertex uint64, local []byte) []byte     { return rankBytes(rankOf(local)) }
func (p *PageRank) SetStart(vertex uint64) []byte                { return rankBytes(0) }

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
