// Package algorithm is the pluggable vertex-centric collaborator of §9: a
// runtime capability set standing in for the reference implementation's
// compile-time preprocessor selection between PageRank/WCC/BFS/k-Core/LPA.
// Each concrete algorithm owns fixed-size LocalStorage/ReplicaLocalStorage/
// VertexNotification payload shapes and is selected once at process
// startup via config.Algorithm.
package algorithm

import "elga/internal/wireproto"

// VertexState is the per-vertex processing state an agent tracks
// alongside the algorithm's own LocalStorage (§4.6.5).
type VertexState int

const (
	Active VertexState = iota
	Inactive
	Dormant
	RepWait // waiting on replica contributions before this vertex can run again
)

// Neighbors is the pair of adjacency lists every vertex keeps regardless
// of algorithm (§3): the edges feeding "run" via vn_inbox.
type Neighbors struct {
	In  []uint64
	Out []uint64
}

// Outcome is what Run produces for one vertex: mutated local state plus
// the notify flags/messages the agent's process_vertices loop is
// responsible for actually sending (§4.6.5 -- "must not send messages
// directly").
type Outcome struct {
	NextState VertexState

	// NotifyOut/NotifyIn carry one payload each, destined respectively to
	// OUT-neighbors and IN-neighbors next iteration, nil if the algorithm
	// has nothing to say this round.
	NotifyOut []byte
	NotifyIn  []byte

	// NotifyReplica carries the replica contribution (RV) payload, sent
	// to every other replica of this vertex, nil if none.
	NotifyReplica []byte
}

// Inbox is what Run receives for one vertex: the notifications that
// arrived addressed to it this iteration, and (if it has replicas) the
// replica contributions received so far this iteration.
type Inbox struct {
	Notifications [][]byte // VertexNotification payloads addressed to this vertex
	Replicas       [][]byte // ReplicaLocalStorage payloads from other replicas, this iteration
	AllRepliesIn   bool     // true once every expected replica has reported this iteration
}

// Hooks is the full per-algorithm capability set of §9's DESIGN NOTES.
// Concrete algorithms (pagerank.go, wcc.go, bfs.go, kcore.go, lpa.go)
// implement this directly; the agent package only ever talks to the
// interface, never a concrete type, so swapping CONFIG_PAGERANK for
// CONFIG_WCC never touches agent code.
type Hooks interface {
	// Name identifies the algorithm for logging/config round-tripping.
	Name() string

	// Run executes one superstep for one vertex. local is the vertex's
	// current opaque LocalStorage blob (nil on its first invocation);
	// Run returns the (possibly new) blob alongside the Outcome.
	Run(vertex uint64, local []byte, neighbors Neighbors, globalNV uint64, in Inbox) (newLocal []byte, out Outcome)

	// ResetState clears any global (non-per-vertex) state the algorithm
	// keeps between batches.
	ResetState()

	// ResetOutput clears per-iteration output-only state, preserving
	// whatever the algorithm wants to survive the barrier (e.g. PageRank's
	// accumulated rank), called when a batch finishes at SYNC(0) (§4.6.6).
	ResetOutput()

	// Save renders one vertex's final result line for the "<vertex>
	// <result>\n" save file format (§6 "Persisted state").
	Save(vertex uint64, local []byte) string

	// DumpOVNState renders a vertex's local state for the OVN dump
	// variant (algorithm-defined neighbor/edge dump format, §6).
	DumpOVNState(vertex uint64, local []byte) []byte

	// SetActive seeds vertex's local storage as of the notification vn
	// (used when a vertex becomes locally-hosted mid-batch via an edge
	// move, or on its very first appearance).
	SetActive(vertex uint64, vn []byte) []byte

	// SetRepActive seeds a replica's local storage as of replica state
	// rs, mirroring SetActive for the replica-side payload.
	SetRepActive(vertex uint64, rs []byte) []byte

	// SkipRepWait reports whether this algorithm never needs to wait on
	// replica contributions (RepWait is unreachable for it), letting
	// process_vertices skip the replica-inbox bookkeeping entirely.
	SkipRepWait() bool

	// QueryRespSize is the fixed byte length of a QUERY reply (and,
	// together with VertexNotification/ReplicaLocalStorage sizes below,
	// what the wire codec needs to size opaque payload arrays).
	QueryRespSize() int

	// NotificationSize/ReplicaSize are the fixed serialized lengths of
	// VertexNotification and ReplicaLocalStorage for this algorithm.
	NotificationSize() int
	ReplicaSize() int

	// Query answers a client QUERY(vertex) against local storage.
	Query(vertex uint64, local []byte) []byte

	// SetStart seeds any algorithm-specific state a vertex needs purely
	// because DO_START fired (e.g. PageRank's uniform initial rank);
	// optional -- algorithms with no start-specific behavior are free to
	// treat this identically to SetActive(vertex, nil).
	SetStart(vertex uint64) []byte
}

// ByName resolves a config.Algorithm-style name to its Hooks
// implementation. Unknown names are a startup argument error, caught by
// the CLI boundary the same way any other bad -config value is.
func ByName(name string) (Hooks, bool) {
	switch name {
	case "PAGERANK":
		return NewPageRank(defaultDamping), true
	case "WCC":
		return NewWCC(), true
	case "BFS":
		return NewBFS(), true
	case "KCORE":
		return NewKCore(), true
	case "LPA":
		return NewLPA(), true
	default:
		return nil, false
	}
}

// Direction re-exported for algorithm implementations that need to reason
// about which neighbor list a notification arrived along (most don't).
type Direction = wireproto.Direction
