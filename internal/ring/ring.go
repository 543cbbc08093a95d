// Package ring implements the consistent hasher of §4.2: a sorted ring of
// hashed agent identifiers, with replication-aware successor lookup.
// Grounded on sdfs.go's HashToVMIdx/replicaNum/quorum pattern (hash a key
// to a ring position, walk forward for replicaNum live targets),
// generalized from a fixed replica count to the replication.Map lookup.
package ring

import (
	"math/rand"
	"sort"

	"elga/internal/replication"
	"elga/internal/xhash"
)

// Hasher holds the sorted ring and can resolve a key to its replica set.
// Not safe for concurrent use -- each agent/participant owns one, rebuilt
// wholesale on every directory-update (§4.6.4 step 1).
type Hasher struct {
	agents []uint64           // agent ids, in ring (sorted-by-hash) order
	hashes []uint64           // parallel sorted hash values
	byHash map[uint64]uint64  // inverse: hash -> agent id
	rm     replication.Map
}

// New builds an empty hasher using rm for Find's replica count.
func New(rm replication.Map) *Hasher {
	if rm == nil {
		rm = replication.None{}
	}
	return &Hasher{rm: rm}
}

// UpdateAgents rebuilds the ring from scratch given the current agent id
// list (endpoint serials, or endpoint|vagent packs -- see wireproto.VAgentID).
func (h *Hasher) UpdateAgents(agents []uint64) {
	hashes := make([]uint64, len(agents))
	byHash := make(map[uint64]uint64, len(agents))
	for i, a := range agents {
		hs := xhash.Mix(a)
		hashes[i] = hs
		byHash[hs] = a
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	sorted := make([]uint64, len(hashes))
	for i, hs := range hashes {
		sorted[i] = byHash[hs]
	}
	h.agents = sorted
	h.hashes = hashes
	h.byHash = byHash
}

// Len reports the current ring size.
func (h *Hasher) Len() int { return len(h.agents) }

// Find returns key's r successor agents walking the ring clockwise with
// wrap-around, where r = rm.Query(key) clamped to the ring size. An empty
// ring returns nil.
func (h *Hasher) Find(key uint64) []uint64 {
	n := len(h.agents)
	if n == 0 {
		return nil
	}
	r := h.rm.Query(key)
	if r < 1 {
		r = 1
	}
	if r > n {
		r = n
	}
	start := h.successorIndex(key)
	out := make([]uint64, r)
	for i := 0; i < r; i++ {
		out[i] = h.agents[(start+i)%n]
	}
	return out
}

// successorIndex binary-searches for the left-most ring position whose
// hash is >= h(key), wrapping to 0 past the end.
func (h *Hasher) successorIndex(key uint64) int {
	target := xhash.Mix(key)
	idx := sort.Search(len(h.hashes), func(i int) bool { return h.hashes[i] >= target })
	if idx == len(h.hashes) {
		idx = 0
	}
	return idx
}

// FindOne returns a uniformly-random member of Find(key), and reports
// whether ownerCheck (with any vagent suffix already stripped by the
// caller) appears among them.
func (h *Hasher) FindOne(key uint64, ownerCheck uint64, checkOwner bool) (agent uint64, haveOwnership bool) {
	dests := h.Find(key)
	if len(dests) == 0 {
		return 0, false
	}
	if checkOwner {
		for _, d := range dests {
			if d == ownerCheck {
				haveOwnership = true
				break
			}
		}
	}
	agent = dests[rand.Intn(len(dests))]
	return agent, haveOwnership
}

// Agents returns a defensive copy of the current ring membership in ring
// order (not input order), for tests and diagnostics.
func (h *Hasher) Agents() []uint64 {
	out := make([]uint64, len(h.agents))
	copy(out, h.agents)
	return out
}
