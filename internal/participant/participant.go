// Package participant is the common base of agents, streamers, and
// clients (§2, §4.3): resolving to a directory, maintaining the
// consistent hasher, resolving edge ownership, and keeping a pooled set of
// outbound sockets (via chatterbox.Chatterbox, which already owns the LRU).
package participant

import (
	"log"
	"sync"

	"elga/internal/chatterbox"
	"elga/internal/replication"
	"elga/internal/ring"
	"elga/internal/wireproto"
)

// Base is embedded by Agent/Streamer/Client. It is not safe for concurrent
// use across goroutines beyond what Chatterbox itself already serializes
// (§5: one thread per participant).
type Base struct {
	Self      wireproto.Endpoint
	Local     uint16
	Layout    wireproto.PortLayout
	Transport chatterbox.Transport
	Chatter   *chatterbox.Chatterbox
	Log       *log.Logger

	mu          sync.RWMutex
	hasher      *ring.Hasher
	rm          replication.Map
	dirPubAddrs []string // known directory publish addresses, for resubscribe after a directory roster change

	memoMu sync.Mutex
	memo   map[findKey]findResult
}

type findKey struct {
	edge       wireproto.Edge
	direction  wireproto.Direction
	findOwner  bool
}

type findResult struct {
	dests []uint64
	have  bool
}

func NewBase(self wireproto.Endpoint, local uint16, layout wireproto.PortLayout, transport chatterbox.Transport, logger *log.Logger) *Base {
	return &Base{
		Self:      self,
		Local:     local,
		Layout:    layout,
		Transport: transport,
		Log:       logger,
		hasher:    ring.New(replication.None{}),
		rm:        replication.None{},
		memo:      make(map[findKey]findResult),
	}
}

// SetReplicationMap swaps the replication map used to size Find's replica
// sets (e.g. switching to a sketch-backed map once the directory's sketch
// subsystem is enabled).
func (b *Base) SetReplicationMap(rm replication.Map) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rm = rm
	agents := b.hasher.Agents()
	b.hasher = ring.New(rm)
	b.hasher.UpdateAgents(agents)
}

// UpdateAgents rebuilds the consistent hasher from a fresh agent roster
// (packed VAgentID list) and invalidates the find_agent memo, per §4.6.4
// step 1 ("directory changes" invalidate memoized resolutions, §4.3).
func (b *Base) UpdateAgents(packedVAgents []uint64) {
	b.mu.Lock()
	b.hasher.UpdateAgents(packedVAgents)
	b.mu.Unlock()

	b.memoMu.Lock()
	b.memo = make(map[findKey]findResult)
	b.memoMu.Unlock()
}

// Hasher exposes the current consistent hasher (read-mostly; callers must
// not mutate it).
func (b *Base) Hasher() *ring.Hasher {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hasher
}

// ReplicaAgents returns the packed VAgentIDs holding v under the current
// ring, i.e. ring.Find(v).
func (b *Base) ReplicaAgents(v uint64) []uint64 {
	return b.Hasher().Find(v)
}
