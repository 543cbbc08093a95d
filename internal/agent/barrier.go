package agent

import (
	"elga/internal/algorithm"
	"elga/internal/wireproto"
)

// runSuperstep drives one discipline-selected superstep of PROCESS and
// moves to JOIN_BARRIER once the discipline reports no remaining outbound
// work for this iteration (§4.6.5/§4.6.6).
func (a *Agent) runSuperstep() {
	if a.discipline.RunSuperstep(a) {
		a.joinBarrier()
	}
}

// joinBarrier reports this agent's dormant-vertex count and waits for the
// directory's SYNC, §4.6.6.
func (a *Agent) joinBarrier() {
	dormant := uint64(0)
	for _, vs := range a.vertices {
		if vs.State == algorithm.Dormant {
			dormant++
		}
	}

	w := wireproto.NewWriter(8)
	wireproto.PackReadySync(w, wireproto.ReadySync{Dormant: dormant})
	if err := a.Chatter.Push(a.dirPullAddr(), wireproto.Message{Kind: wireproto.KindReadySync, Body: w.Bytes()}.Pack()); err != nil {
		a.Log.Printf("READY_SYNC push failed: %v", err)
	}
	a.setState(WaitForSync)
}

// handleSync applies the directory's SYNC(dormantSum), §4.6.6.
func (a *Agent) handleSync(dormantSum uint64) {
	if dormantSum == 0 {
		a.finishBatch()
		return
	}
	a.advanceIteration()
}

// finishBatch closes out the current batch: iteration buffers are
// dropped, the algorithm's output-only state resets (its accumulated
// per-batch result, e.g. PageRank's rank, survives), and the agent either
// resumes a deferred update batch or goes idle.
func (a *Agent) finishBatch() {
	a.vnInbox = make(map[int32]map[uint64][][]byte)
	a.vnRemaining = make(map[int32]int)
	a.repInbox = make(map[int32]map[uint64][][]byte)
	a.iteration = 0
	a.batch++
	a.algo.ResetOutput()

	if len(a.updateSet) > 0 {
		a.startLeavingIdle()
		return
	}
	a.setState(Idle)
}

// advanceIteration garbage-collects fully-drained iteration buffers,
// reactivates dormant vertices, and resumes PROCESS.
func (a *Agent) advanceIteration() {
	for it, remaining := range a.vnRemaining {
		if remaining == 0 && it < a.iteration {
			delete(a.vnRemaining, it)
			delete(a.vnInbox, it)
			delete(a.repInbox, it)
		}
	}

	for v, vs := range a.vertices {
		if vs.State == algorithm.Dormant {
			vs.State = algorithm.Active
			if a.discipline.TracksActiveSet() {
				a.active[v] = true
			}
		}
	}

	a.setState(Process)
	a.runSuperstep()
}
