package agent

import (
	"log"
	"sync"

	"elga/internal/algorithm"
	"elga/internal/chatterbox"
	"elga/internal/config"
	"elga/internal/participant"
	"elga/internal/replication"
	"elga/internal/sketch"
	"elga/internal/wireproto"
)

// Agent is one physical agent process (possibly hosting several virtual
// agents, §3) participating in the graph shard (§4.6).
type Agent struct {
	*participant.Base

	DirectoryEndpoint wireproto.Endpoint
	cfg               config.Config
	algo              algorithm.Hooks
	discipline        Discipline

	mu       sync.Mutex
	state    State
	vertices map[uint64]*VertexStorage
	active   map[uint64]bool // non-BSP disciplines track the active set explicitly

	moves     map[uint64][]wireproto.Update // owner endpoint serial -> queued out-of-shard updates
	updateSet []wireproto.Update             // updates queued while IDLE, drained by FinalizeGraphBatch

	globalNV uint64
	localNV  int64
	localNE  int64

	pendingDeltaNV float64
	pendingDeltaNE int64

	updateAcksNeeded int

	batch     uint32
	iteration int32

	vnInbox     map[int32]map[uint64][][]byte
	vnRemaining map[int32]int
	repInbox    map[int32]map[uint64][][]byte

	localSketch   *sketch.CountMin
	pushSketch    bool
	repThreshold  int32
}

// New constructs an Agent bound to cb (already wired with this process's
// reply/pub/pull addresses) and the given directory. transport must be the
// same Transport cb itself was built with (participant.Base needs it for
// FindAgent-driven outbound dials that don't go through cb's own pool).
func New(self wireproto.Endpoint, transport chatterbox.Transport, cb *chatterbox.Chatterbox, dirEndpoint wireproto.Endpoint, cfg config.Config, algo algorithm.Hooks, logger *log.Logger) *Agent {
	base := participant.NewBase(self, self.Local, cfg.PortLayout(), transport, logger)
	base.Chatter = cb

	a := &Agent{
		Base:              base,
		DirectoryEndpoint: dirEndpoint,
		cfg:               cfg,
		algo:              algo,
		state:             NoProcess,
		vertices:          make(map[uint64]*VertexStorage),
		active:            make(map[uint64]bool),
		moves:             make(map[uint64][]wireproto.Update),
		vnInbox:           make(map[int32]map[uint64][][]byte),
		vnRemaining:       make(map[int32]int),
		repInbox:          make(map[int32]map[uint64][][]byte),
		repThreshold:      cfg.RepThreshold,
	}
	a.discipline = disciplineFor(cfg.Discipline)
	if cfg.SketchWidth > 0 && cfg.SketchDepth > 0 {
		a.localSketch = sketch.NewCountMin(cfg.SketchWidth, cfg.SketchDepth)
	}
	return a
}

func (a *Agent) dirReplyAddr() string {
	return a.resolveDirectory(wireproto.Request)
}
func (a *Agent) dirPullAddr() string {
	return a.resolveDirectory(wireproto.Pull)
}
func (a *Agent) dirPubAddr() string {
	return a.resolveDirectory(wireproto.Publish)
}
func (a *Agent) resolveDirectory(class wireproto.SocketClass) string {
	return wireproto.ResolveAddr(a.Self.IPv4, a.DirectoryEndpoint.IPv4, a.DirectoryEndpoint.Local, class, a.Layout)
}

func (a *Agent) agentAddr(serial uint64, class wireproto.SocketClass) string {
	ep := wireproto.EndpointFromSerial(serial)
	return wireproto.ResolveAddr(a.Self.IPv4, ep.IPv4, ep.Local, class, a.Layout)
}

// Start serves the reply/pull sockets and subscribes to the directory.
func (a *Agent) Start() error {
	if err := a.Chatter.Serve(a.handleRequest, a.handlePull); err != nil {
		return err
	}
	if err := a.Chatter.Subscribe(a.dirPubAddr(), nil, a.handleDirectoryMessage); err != nil {
		return err
	}

	join := wireproto.VAgentID{Endpoint: a.Self, VAgent: uint16(a.cfg.StartingVAgents)}.Pack()
	w := wireproto.NewWriter(8)
	wireproto.PackU64List(w, []uint64{join})
	return a.Chatter.Push(a.dirPullAddr(), wireproto.Message{Kind: wireproto.KindAgentJoin, Body: w.Bytes()}.Pack())
}

// Stop sends AGENT_LEAVE and closes the chatterbox (§5 cancellation).
func (a *Agent) Stop() {
	leave := wireproto.VAgentID{Endpoint: a.Self, VAgent: uint16(a.cfg.StartingVAgents)}.Pack()
	w := wireproto.NewWriter(8)
	wireproto.PackU64List(w, []uint64{leave})
	_ = a.Chatter.Push(a.dirPullAddr(), wireproto.Message{Kind: wireproto.KindAgentLeave, Body: w.Bytes()}.Pack())
	a.Chatter.Close()
}

func (a *Agent) setState(s State) {
	a.state = s
}

// doneWaitingReadyNVNE reports accumulated vertex/edge count deltas to the
// directory and resets them, called whenever update_acks_needed clears
// (§4.6.2/§4.6.3/§4.6.7).
func (a *Agent) doneWaitingReadyNVNE() {
	w := wireproto.NewWriter(16)
	wireproto.PackReadyNVNE(w, wireproto.ReadyNVNE{DeltaNV: a.pendingDeltaNV, DeltaNE: a.pendingDeltaNE})
	a.pendingDeltaNV = 0
	a.pendingDeltaNE = 0
	if err := a.Chatter.Push(a.dirPullAddr(), wireproto.Message{Kind: wireproto.KindReadyNVNE, Body: w.Bytes()}.Pack()); err != nil {
		a.Log.Printf("READY_NV_NE push failed: %v", err)
	}
	a.setState(Process)
}

// startLeavingIdle re-enters LEAVING_NO_PROCESS-style processing when a
// pending update batch exists right after a batch finishes (§4.6.6).
func (a *Agent) startLeavingIdle() {
	a.setState(LeavingNoProcess)
	a.SendOutEdges(false)
}

func (a *Agent) sketchReplicationMap() replication.Map {
	if a.localSketch == nil {
		return replication.None{}
	}
	return replication.CountMinBacked{Sketch: a.localSketch, Threshold: a.repThreshold}
}

func (a *Agent) fatal(err error) {
	if err != nil {
		panic(err)
	}
}
