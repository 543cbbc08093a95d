package directory

import (
	"elga/internal/procerrors"
	"elga/internal/sketch"
	"elga/internal/wireproto"
)

// handleRequest answers the directory's reply socket. §4.5 doesn't give the
// directory any reply-socket operations of its own; a directory only ever
// replies with empty acks here to keep the request/reply contract intact
// for any caller that dials it expecting one (mirrors the master's ack
// pattern, generalized to "no-op unless recognized").
func (d *Directory) handleRequest(req []byte) []byte {
	_, err := wireproto.UnpackMessage(req)
	if err != nil {
		d.Log.Printf("malformed request: %v", err)
	}
	return nil
}

// handlePull dispatches fire-and-forget messages sent directly by local
// agents (§4.5 "Inbound handling"), plus client directives pushed by the
// client, which are republished as their DO_* variant like the master's
// passthroughs.
func (d *Directory) handlePull(raw []byte) {
	msg, err := wireproto.UnpackMessage(raw)
	if err != nil {
		d.Log.Printf("malformed pull message: %v", err)
		return
	}

	switch msg.Kind {
	case wireproto.KindAgentJoin:
		d.handleAgentMembership(msg.Body, true)
	case wireproto.KindAgentLeave:
		d.handleAgentMembership(msg.Body, false)
	case wireproto.KindCSUpdate:
		d.handleCSUpdate(msg.Body)
	case wireproto.KindNeedDirectory:
		d.handleNeedDirectory()
	case wireproto.KindReadyNVNE:
		d.handleReadyNVNE(msg.Body, false)
	case wireproto.KindReadySync:
		d.handleReadySync(msg.Body, false)
	case wireproto.KindSimpleSync:
		d.handleSimpleSync()
	case wireproto.KindHaveUpdate:
		d.handleHaveUpdate(msg.Body)
	default:
		if isPassthroughKind(msg.Kind) {
			d.handlePassthrough(msg)
			return
		}
		panic(procerrors.Protof("directory: unexpected pull message kind %s", msg.Kind))
	}
}

// handlePeerMessage dispatches messages published by a peer directory this
// Directory subscribes to: agent membership propagation and the internal
// variants of READY_NV_NE/READY_SYNC.
func (d *Directory) handlePeerMessage(raw []byte) {
	msg, err := wireproto.UnpackMessage(raw)
	if err != nil {
		d.Log.Printf("malformed peer message: %v", err)
		return
	}

	switch msg.Kind {
	case wireproto.KindAgentJoin:
		d.handleAgentMembership(msg.Body, true)
	case wireproto.KindAgentLeave:
		d.handleAgentMembership(msg.Body, false)
	case wireproto.KindReadyNVNEInt:
		d.handleReadyNVNE(msg.Body, true)
	case wireproto.KindReadySyncInt:
		d.handleReadySync(msg.Body, true)
	case wireproto.KindDirectoryUpdate, wireproto.KindNV, wireproto.KindSync,
		wireproto.KindSimpleSyncDone, wireproto.KindHeartbeat:
		// informational broadcasts this directory doesn't act on itself
	default:
		d.Log.Printf("peer message: unhandled kind %s", msg.Kind)
	}
}

// handleMasterMessage dispatches messages published by the directory
// master this Directory subscribes to at startup: new/departed peer
// directories, shutdown, and client-directive passthroughs.
func (d *Directory) handleMasterMessage(raw []byte) {
	msg, err := wireproto.UnpackMessage(raw)
	if err != nil {
		d.Log.Printf("malformed master message: %v", err)
		return
	}

	switch msg.Kind {
	case wireproto.KindDirectoryJoin:
		ep, err := wireproto.UnpackEndpoint(wireproto.NewReader(msg.Body))
		if err == nil && ep != d.Self {
			d.subscribeToPeer(ep)
		}
	case wireproto.KindDirectoryLeave:
		ep, err := wireproto.UnpackEndpoint(wireproto.NewReader(msg.Body))
		if err == nil {
			d.unsubscribeFromPeer(ep)
		}
	case wireproto.KindShutdown:
		d.Chatter.Publish(wireproto.Message{Kind: wireproto.KindShutdown}.Pack())
		go d.Stop()
	default:
		if isPassthroughKind(msg.Kind) {
			d.handlePassthrough(msg)
			return
		}
		panic(procerrors.Protof("directory: unexpected master message kind %s", msg.Kind))
	}
}

var passthroughKinds = map[wireproto.Kind]bool{
	wireproto.KindStart:  true,
	wireproto.KindSave:   true,
	wireproto.KindDump:   true,
	wireproto.KindUpdate: true,
	wireproto.KindReset:  true,
	wireproto.KindChkT:   true,
	wireproto.KindVA:     true,
	wireproto.KindCSLB:   true,
}

func isPassthroughKind(k wireproto.Kind) bool { return passthroughKinds[k] }

// handlePassthrough rewrites a client-directive message to its DO_* variant
// and publishes it to agents (§4.5/§9).
func (d *Directory) handlePassthrough(msg wireproto.Message) {
	rewritten := wireproto.Message{Kind: msg.Kind.DO(), Body: msg.Body}
	d.Chatter.Publish(rewritten.Pack())
}

// handleAgentMembership applies an AGENT_JOIN/AGENT_LEAVE batch. The first
// packed entry's presence in the agent set gates the whole batch: gossip
// may deliver the same join/leave to this directory more than once (once
// from the originating agent, again relayed by a peer directory), and the
// first entry is enough to detect that and skip re-applying (§4.5).
func (d *Directory) handleAgentMembership(body []byte, join bool) {
	packed, err := wireproto.UnpackU64List(wireproto.NewReader(body))
	if err != nil || len(packed) == 0 {
		panic(procerrors.Protof("directory: malformed agent membership body: %v", err))
	}

	first := wireproto.VAgentFromPacked(packed[0])

	d.mu.Lock()
	_, present := d.agents[first.Endpoint.Serial()]
	if present == join {
		// join: already have it, duplicate delivery.
		// leave: already gone, duplicate delivery.
		d.mu.Unlock()
		return
	}
	for _, p := range packed {
		v := wireproto.VAgentFromPacked(p)
		if join {
			d.agents[v.Endpoint.Serial()] = v.VAgent
		} else {
			delete(d.agents, v.Endpoint.Serial())
		}
	}
	d.csRecv = 0 // reset on every membership change (§9 open question)
	d.pendingUpdate = true
	d.pendingChange = true
	d.mu.Unlock()

	d.Chatter.Publish(wireproto.Message{Kind: kindFor(join), Body: body}.Pack())
}

func kindFor(join bool) wireproto.Kind {
	if join {
		return wireproto.KindAgentJoin
	}
	return wireproto.KindAgentLeave
}

func (d *Directory) handleCSUpdate(body []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sketchTable == nil {
		return
	}
	if len(body) > 0 {
		incoming, err := sketch.Deserialize(d.cfg.SketchWidth, d.cfg.SketchDepth, body)
		if err != nil {
			panic(procerrors.Protof("directory: malformed CS_UPDATE: %v", err))
		}
		d.sketchTable.Merge(incoming)
	}
	d.csRecv++
	if d.csRecv >= d.agentCountLocked() {
		d.pendingUpdate = true
		d.csRecv = 0
	}
}

func (d *Directory) handleNeedDirectory() {
	d.mu.Lock()
	d.pendingUpdate = true
	d.mu.Unlock()
}

func (d *Directory) handleReadyNVNE(body []byte, internal bool) {
	m, err := wireproto.UnpackReadyNVNE(wireproto.NewReader(body))
	if err != nil {
		panic(procerrors.Protof("directory: malformed READY_NV_NE: %v", err))
	}

	d.mu.Lock()
	d.readyNVNECount++
	d.globalNV += m.DeltaNV
	d.globalNE += m.DeltaNE
	count := d.readyNVNECount
	agentCount := d.agentCountLocked()
	var publishNV bool
	var nv, ne uint64
	if count >= agentCount {
		publishNV = true
		nv = uint64(d.globalNV)
		ne = uint64(d.globalNE)
		d.readyNVNECount = 0
		d.globalNV = 0
		d.globalNE = 0
	}
	d.mu.Unlock()

	if !internal {
		d.Chatter.Publish(wireproto.Message{Kind: wireproto.KindReadyNVNEInt, Body: body}.Pack())
	}
	if publishNV {
		w := wireproto.NewWriter(16)
		wireproto.PackNV(w, wireproto.NV{NumVertices: nv, NumEdges: ne})
		d.Chatter.Publish(wireproto.Message{Kind: wireproto.KindNV, Body: w.Bytes()}.Pack())
	}
}

func (d *Directory) handleReadySync(body []byte, internal bool) {
	m, err := wireproto.UnpackReadySync(wireproto.NewReader(body), internal)
	if err != nil {
		panic(procerrors.Protof("directory: malformed READY_SYNC: %v", err))
	}

	d.mu.Lock()
	key := syncKey{batch: d.batch, iteration: d.iteration}
	if internal {
		key = syncKey{batch: m.Batch, iteration: m.Iteration}
	}
	round, ok := d.syncRounds[key]
	if !ok {
		round = &syncRound{}
		d.syncRounds[key] = round
	}
	round.count++
	round.dormant += m.Dormant
	agentCount := d.agentCountLocked()

	var publishSync bool
	var dormantSum uint64
	if round.count >= agentCount {
		publishSync = true
		dormantSum = round.dormant
		delete(d.syncRounds, key)
		if dormantSum == 0 {
			d.batch++
		}
		d.iteration++
		d.agentsIdle = true
	}
	d.mu.Unlock()

	if !internal {
		w := wireproto.NewWriter(20)
		wireproto.PackReadySync(w, wireproto.ReadySync{Dormant: m.Dormant, Internal: true, Iteration: key.iteration, Batch: key.batch})
		d.Chatter.Publish(wireproto.Message{Kind: wireproto.KindReadySyncInt, Body: w.Bytes()}.Pack())
	}
	if publishSync {
		w := wireproto.NewWriter(8)
		wireproto.PackSync(w, dormantSum)
		d.Chatter.Publish(wireproto.Message{Kind: wireproto.KindSync, Body: w.Bytes()}.Pack())
	}
}

func (d *Directory) handleSimpleSync() {
	d.mu.Lock()
	d.simpleSyncCount++
	agentCount := d.agentCountLocked()
	done := d.simpleSyncCount >= agentCount
	if done {
		d.simpleSyncCount = 0
		d.pendingUpdate = true
	}
	d.mu.Unlock()

	d.Chatter.Publish(wireproto.Message{Kind: wireproto.KindSimpleSync}.Pack())
	if done {
		d.Chatter.Publish(wireproto.Message{Kind: wireproto.KindSimpleSyncDone}.Pack())
	}
}

func (d *Directory) handleHaveUpdate(body []byte) {
	batchReq, err := wireproto.UnpackHaveUpdate(wireproto.NewReader(body))
	if err != nil {
		panic(procerrors.Protof("directory: malformed HAVE_UPDATE: %v", err))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case batchReq < d.batch:
		return // stale, drop
	case batchReq > d.batch:
		panic(procerrors.Protof("directory: HAVE_UPDATE for future batch %d (current %d)", batchReq, d.batch))
	default:
		if d.agentsIdle {
			d.agentsIdle = false
			d.Chatter.Publish(wireproto.Message{Kind: wireproto.KindHaveUpdate, Body: body}.Pack())
		}
	}
}

func (d *Directory) unsubscribeFromPeer(ep wireproto.Endpoint) {
	addr := d.resolve(ep, wireproto.Publish)
	d.mu.Lock()
	delete(d.peerPubAddrs, addr)
	d.mu.Unlock()
	// The underlying subscription goroutine exits once its connection is
	// closed; chatterbox doesn't expose a direct unsubscribe, so a peer
	// leaving simply stops producing traffic we act on.
}
