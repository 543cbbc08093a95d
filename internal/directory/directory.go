// Package directory implements the replicated membership authority of
// §4.5: the agent roster, gossip with peer directories, the frequency
// sketch driving replication counts, and the batch/iteration barrier
// counters every agent rendezvouses through.
package directory

import (
	"log"
	"sort"
	"sync"
	"time"

	"elga/internal/chatterbox"
	"elga/internal/sketch"
	"elga/internal/wireproto"
)

// Config carries the subset of the environment-injected constants (§6)
// that shape a Directory's behavior.
type Config struct {
	HeartbeatInterval time.Duration
	SketchWidth       uint32
	SketchDepth       uint32 // zero width or depth disables the frequency-sketch subsystem

	// Autoscale* mirror the §6 AUTOSCALE_* constants. §3 names "autoscale
	// bookkeeping" as directory state without specifying triggered
	// behavior, so these are only read and logged against, never acted on
	// (see checkAutoscaleLocked).
	AutoscaleLowWatermark  int
	AutoscaleHighWatermark int
	AutoscaleEnabled       bool
}

// Directory is one replica of the membership authority. One process runs
// exactly one Directory; many physical agents rendezvous through it.
type Directory struct {
	Self         wireproto.Endpoint
	Chatter      *chatterbox.Chatterbox
	MasterEndpoint wireproto.Endpoint
	Layout       wireproto.PortLayout
	Log          *log.Logger
	cfg          Config

	mu sync.Mutex

	agents        map[uint64]uint16 // endpoint serial -> vagent count
	peerPubAddrs  map[string]bool   // addresses of peer directories we subscribe to

	// lastSeenBatch is a liveness/debugging aid, not a correctness
	// mechanism (§4.5 already specifies full-mesh broadcast): the batch
	// counter this directory itself was on the last time traffic arrived
	// from each peer, grounded on the teacher's standbyReivStepcount.
	lastSeenBatch map[uint64]uint32

	pendingUpdate bool // arm a DIRECTORY_UPDATE at the next heartbeat
	pendingChange bool // that update's "changed" bit

	sketchTable *sketch.CountMin
	csRecv      int // CS_UPDATE receipts seen this round

	globalNV float64
	globalNE int64
	readyNVNECount int

	batch     uint32
	iteration int32
	syncRounds map[syncKey]*syncRound

	simpleSyncCount int
	agentsIdle      bool

	stopCh chan struct{}
}

type syncKey struct {
	batch     uint32
	iteration int32
}

type syncRound struct {
	count   int
	dormant uint64
}

// New constructs a Directory bound to cb, which must already be wired with
// reply/pub/pull addresses for this process. masterEndpoint is the
// directory master's endpoint, whose reply address is used for
// DIRECTORY_JOIN/GET_DIRECTORIES.
func New(self wireproto.Endpoint, cb *chatterbox.Chatterbox, masterEndpoint wireproto.Endpoint, layout wireproto.PortLayout, cfg Config, logger *log.Logger) *Directory {
	d := &Directory{
		Self:           self,
		Chatter:        cb,
		MasterEndpoint: masterEndpoint,
		Layout:         layout,
		Log:            logger,
		cfg:            cfg,
		agents:         make(map[uint64]uint16),
		peerPubAddrs:   make(map[string]bool),
		lastSeenBatch:  make(map[uint64]uint32),
		syncRounds:     make(map[syncKey]*syncRound),
		stopCh:         make(chan struct{}),
	}
	if cfg.SketchWidth > 0 && cfg.SketchDepth > 0 {
		d.sketchTable = sketch.NewCountMin(cfg.SketchWidth, cfg.SketchDepth)
	}
	return d
}

// agentCountLocked is the round-completion threshold every counter in §4.5
// compares against: the number of distinct physical agents currently
// registered.
func (d *Directory) agentCountLocked() int { return len(d.agents) }

func (d *Directory) resolve(ep wireproto.Endpoint, class wireproto.SocketClass) string {
	return wireproto.ResolveAddr(d.Self.IPv4, ep.IPv4, ep.Local, class, d.Layout)
}

// Start subscribes to the directory master, joins, discovers peers, and
// launches the reply/pull accept loops plus the heartbeat loop.
func (d *Directory) Start() error {
	if err := d.Chatter.Serve(d.handleRequest, d.handlePull); err != nil {
		return err
	}

	masterReplyAddr := d.resolve(d.MasterEndpoint, wireproto.Request)
	masterPubAddr := d.resolve(d.MasterEndpoint, wireproto.Publish)

	joinBody := wireproto.NewWriter(8)
	wireproto.PackEndpoint(joinBody, d.Self)
	if _, err := d.Chatter.Request(masterReplyAddr, wireproto.Message{Kind: wireproto.KindDirectoryJoin, Body: joinBody.Bytes()}.Pack()); err != nil {
		return err
	}

	if err := d.Chatter.Subscribe(masterPubAddr, nil, func(msg []byte) { d.handleMasterMessage(msg) }); err != nil {
		return err
	}

	resp, err := d.Chatter.Request(masterReplyAddr, wireproto.Message{Kind: wireproto.KindGetDirectories}.Pack())
	if err != nil {
		return err
	}
	peers, err := wireproto.UnpackU64List(wireproto.NewReader(resp))
	if err != nil {
		return err
	}
	for _, p := range peers {
		ep := wireproto.EndpointFromSerial(p)
		if ep == d.Self {
			continue
		}
		d.subscribeToPeer(ep)
	}

	go d.heartbeatLoop()
	return nil
}

func (d *Directory) subscribeToPeer(ep wireproto.Endpoint) {
	addr := d.resolve(ep, wireproto.Publish)
	d.mu.Lock()
	if d.peerPubAddrs[addr] {
		d.mu.Unlock()
		return
	}
	d.peerPubAddrs[addr] = true
	d.mu.Unlock()

	serial := ep.Serial()
	err := d.Chatter.Subscribe(addr, nil, func(msg []byte) {
		d.recordPeerSeenLocked(serial)
		d.handlePeerMessage(msg)
	})
	if err != nil {
		d.Log.Printf("subscribe to peer directory %s: %v", addr, err)
	}
}

func (d *Directory) recordPeerSeenLocked(peerSerial uint64) {
	d.mu.Lock()
	d.lastSeenBatch[peerSerial] = d.batch
	d.mu.Unlock()
}

// logStalePeersLocked warns about peer directories that haven't produced
// any traffic since a batch boundary several generations back -- a
// liveness hint only, per lastSeenBatch's doc comment.
func (d *Directory) logStalePeersLocked() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for serial, seen := range d.lastSeenBatch {
		if d.batch > seen+2 {
			d.Log.Printf("peer directory %x last seen at batch %d, now at %d", serial, seen, d.batch)
		}
	}
}

// heartbeatLoop fires on HeartbeatInterval: it always publishes a bare
// HEARTBEAT (grounded on failure-detector/fd.go's periodic gossip ping,
// generalized from a membership-list sweep to a single liveness
// broadcast every subscriber can key off of) and additionally publishes
// DIRECTORY_UPDATE whenever one is pending (§6 "Heartbeat").
func (d *Directory) heartbeatLoop() {
	interval := d.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.Chatter.Publish(wireproto.Message{Kind: wireproto.KindHeartbeat}.Pack())
			d.maybePublishUpdate()
			d.logStalePeersLocked()
			d.checkAutoscaleLocked()
		}
	}
}

func (d *Directory) maybePublishUpdate() {
	d.mu.Lock()
	if !d.pendingUpdate {
		d.mu.Unlock()
		return
	}
	changed := d.pendingChange
	d.pendingUpdate = false
	d.pendingChange = false
	agents := d.packedAgentsLocked()
	var sketchBlob []byte
	if d.sketchTable != nil {
		sketchBlob = d.sketchTable.Serialize()
	}
	d.mu.Unlock()

	w := wireproto.NewWriter(1 + len(agents)*8 + len(sketchBlob))
	wireproto.PackDirectoryUpdate(w, wireproto.DirectoryUpdate{Changed: changed, Agents: agents, Sketch: sketchBlob})
	d.Chatter.Publish(wireproto.Message{Kind: wireproto.KindDirectoryUpdate, Body: w.Bytes()}.Pack())
}

func (d *Directory) packedAgentsLocked() []uint64 {
	out := make([]uint64, 0, len(d.agents))
	for serial, vagents := range d.agents {
		ep := wireproto.EndpointFromSerial(serial)
		out = append(out, wireproto.VAgentID{Endpoint: ep, VAgent: vagents}.Pack())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// checkAutoscaleLocked logs when the agent count crosses one of the
// AUTOSCALE_* watermarks (§6), per the Open Question decision recorded in
// DESIGN.md: observe and log only, no scaling action.
func (d *Directory) checkAutoscaleLocked() {
	if !d.cfg.AutoscaleEnabled {
		return
	}
	d.mu.Lock()
	count := d.agentCountLocked()
	d.mu.Unlock()

	switch {
	case d.cfg.AutoscaleLowWatermark > 0 && count <= d.cfg.AutoscaleLowWatermark:
		d.Log.Printf("autoscale: agent count %d at or below low watermark %d", count, d.cfg.AutoscaleLowWatermark)
	case d.cfg.AutoscaleHighWatermark > 0 && count >= d.cfg.AutoscaleHighWatermark:
		d.Log.Printf("autoscale: agent count %d at or above high watermark %d", count, d.cfg.AutoscaleHighWatermark)
	}
}

// Stop ends the heartbeat loop and closes the chatterbox.
func (d *Directory) Stop() {
	close(d.stopCh)
	d.Chatter.Close()
}
