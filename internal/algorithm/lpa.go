package algorithm

import "fmt"

// LPA is asynchronous label propagation: each vertex adopts the
// most-frequent label among the labels it heard this round, initialized to
// its own vertex id.
type LPA struct{}

func NewLPA() *LPA { return &LPA{} }

func (l *LPA) Name() string { return "LPA" }

func (l *LPA) Run(vertex uint64, local []byte, neighbors Neighbors, globalNV uint64, in Inbox) ([]byte, Outcome) {
	label := idOf(local, vertex)

	if len(in.Notifications) > 0 {
		counts := make(map[uint64]int, len(in.Notifications))
		for _, msg := range in.Notifications {
			counts[leU64(msg)]++
		}
		best, bestCount := label, 0
		for lbl, c := range counts {
			if c > bestCount || (c == bestCount && lbl < best) {
				best, bestCount = lbl, c
			}
		}
		label = best
	}

	out := Outcome{
		NextState: Active,
		NotifyOut: le64(label),
		NotifyIn:  le64(label),
	}
	return le64(label), out
}

func (l *LPA) ResetState()  {}
func (l *LPA) ResetOutput() {}

func (l *LPA) Save(vertex uint64, local []byte) string {
	return fmt.Sprintf("%d %d\n", vertex, idOf(local, vertex))
}

func (l *LPA) DumpOVNState(vertex uint64, local []byte) []byte { return le64(idOf(local, vertex)) }
func (l *LPA) SetActive(vertex uint64, vn []byte) []byte       { return le64(idOf(vn, vertex)) }
func (l *LPA) SetRepActive(vertex uint64, rs []byte) []byte    { return le64(idOf(rs, vertex)) }
func (l *LPA) SkipRepWait() bool                               { return true }
func (l *LPA) QueryRespSize() int                              { return 8 }
func (l *LPA) NotificationSize() int                           { return 8 }
func (l *LPA) ReplicaSize() int                                { return 8 }
func (l *LPA) Query(vertex uint64, local []byte) []byte        { return le64(idOf(local, vertex)) }
func (l *LPA) SetStart(vertex uint64) []byte                   { return le64(vertex) }
