package algorithm

import "fmt"

// KCore is the standard peeling-by-notification k-core estimator: each
// vertex tracks its current live-degree estimate and repeatedly announces
// it to neighbors; a neighbor lowers its own estimate to the count of
// still-live neighbors whose last announced degree was >= its own,
// converging to the coreness number.
type KCore struct{}

func NewKCore() *KCore { return &KCore{} }

func (k *KCore) Name() string { return "KCORE" }

func degOf(local []byte, fallback uint64) uint64 {
	if len(local) != 8 {
		return fallback
	}
	return leU64(local)
}

func (k *KCore) Run(vertex uint64, local []byte, neighbors Neighbors, globalNV uint64, in Inbox) ([]byte, Outcome) {
	deg := uint64(len(neighbors.In) + len(neighbors.Out))
	cur := degOf(local, deg)

	live := 0
	for _, msg := range in.Notifications {
		if leU64(msg) >= cur {
			live++
		}
	}
	next := cur
	if len(in.Notifications) > 0 && uint64(live) < cur {
		next = uint64(live)
	}

	out := Outcome{NextState: Inactive}
	if next != cur || len(local) == 0 {
		out.NextState = Active
		out.NotifyOut = le64(next)
		out.NotifyIn = le64(next)
	}
	return le64(next), out
}

func (k *KCore) ResetState()  {}
func (k *KCore) ResetOutput() {}

func (k *KCore) Save(vertex uint64, local []byte) string {
	return fmt.Sprintf("%d %d\n", vertex, degOf(local, 0))
}

func (k *KCore) DumpOVNState(vertex uint64, local []byte) []byte { return le64(degOf(local, 0)) }
func (k *KCore) SetActive(vertex uint64, vn []byte) []byte       { return le64(degOf(vn, 0)) }
func (k *KCore) SetRepActive(vertex uint64, rs []byte) []byte    { return le64(degOf(rs, 0)) }
func (k *KCore) SkipRepWait() bool                               { return true }
func (k *KCore) QueryRespSize() int                              { return 8 }
func (k *KCore) NotificationSize() int                           { return 8 }
func (k *KCore) ReplicaSize() int                                { return 8 }
func (k *KCore) Query(vertex uint64, local []byte) []byte        { return le64(degOf(local, 0)) }
func (k *KCore) SetStart(vertex uint64) []byte                   { return nil }
