package participant

import (
	"elga/internal/replication"
	"elga/internal/ring"
	"elga/internal/wireproto"
)

// newSecondaryRing builds a one-off, replication=1 ring over exactly
// dests, used to deterministically tie-break among a primary vertex's
// replica set keyed by the secondary vertex (§4.3).
func newSecondaryRing(dests []uint64) *ring.Hasher {
	h := ring.New(replication.None{})
	h.UpdateAgents(dests)
	return h
}

// FindAgent resolves which virtual agent owns edge under direction (§4.3).
//
//   - findOwner=false: a uniformly-random pick among the primary vertex's
//     replica set (find_one over u), reporting whether ownerCheck (an
//     endpoint serial, vagent suffix already stripped by the caller) is
//     among them.
//   - findOwner=true: if the primary's replica set has one member, that's
//     the winner. Otherwise a deterministic secondary ring (replication=1)
//     over the primary's replica set, keyed by the secondary vertex, picks
//     the winner so every shard agrees. have_ownership is always false in
//     this branch (the spec resets it here).
//
// If returnVA is false the vagent suffix is stripped and only the
// endpoint serial is returned. Results are memoized per (edge, direction,
// findOwner) until the next UpdateAgents.
func (b *Base) FindAgent(edge wireproto.Edge, direction wireproto.Direction, findOwner bool, ownerCheck uint64, returnVA bool) (agent uint64, haveOwnership bool) {
	key := findKey{edge: edge, direction: direction, findOwner: findOwner}

	b.memoMu.Lock()
	if cached, ok := b.memo[key]; ok && len(cached.dests) > 0 {
		b.memoMu.Unlock()
		return finishFindAgent(cached.dests[0], returnVA), cached.have
	}
	b.memoMu.Unlock()

	u := edge.Primary(direction)
	v := edge.Secondary(direction)
	h := b.Hasher()

	var winner uint64
	var have bool

	if !findOwner {
		winner, have = h.FindOne(u, ownerCheck, true)
	} else {
		dests := h.Find(u)
		if len(dests) == 0 {
			return 0, false
		}
		if len(dests) == 1 {
			winner = dests[0]
		} else {
			secondary := newSecondaryRing(dests)
			winner, _ = secondary.FindOne(v, 0, false)
		}
		have = false // reset per §4.3
	}

	b.memoMu.Lock()
	b.memo[key] = findResult{dests: []uint64{winner}, have: have}
	b.memoMu.Unlock()

	return finishFindAgent(winner, returnVA), have
}

func finishFindAgent(packed uint64, returnVA bool) uint64 {
	if returnVA {
		return packed
	}
	return wireproto.StripVAgent(packed)
}
