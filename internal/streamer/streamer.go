// Package streamer implements §4.7: a one-shot process that reads edge
// deltas from a file, a generator, or the network, and dispatches them to
// the agent owning each edge's IN side, batching when configured.
package streamer

import (
	"log"
	"time"

	"elga/internal/chatterbox"
	"elga/internal/participant"
	"elga/internal/wireproto"
)

// Config tunes batching and (for Generator mode) the synthetic edge
// stream; zero BatchSize means one UPDATE_EDGE per edge, no batching.
type Config struct {
	BatchSize int
	// Checkpoint, if true, also subscribes to SYNC on the directory's
	// publish socket so that WaitForSync can block on the next one; the
	// Run* methods do not call WaitForSync themselves and flush without
	// waiting (§4.7).
	Checkpoint bool
}

// Streamer is a participant, §2/§4.3: it resolves edge ownership through
// the same consistent-hasher machinery as an agent. It never serves a
// reply socket; it serves a pull socket of its own only in Network mode
// (RunNetwork), and otherwise only dials out.
type Streamer struct {
	*participant.Base

	DirectoryEndpoint wireproto.Endpoint
	cfg               Config

	changes map[uint64][]wireproto.Update

	syncCh chan struct{}
}

func New(self wireproto.Endpoint, transport chatterbox.Transport, cb *chatterbox.Chatterbox, dirEndpoint wireproto.Endpoint, cfg Config, logger *log.Logger) *Streamer {
	base := participant.NewBase(self, self.Local, wireproto.DefaultPortLayout, transport, logger)
	base.Chatter = cb
	return &Streamer{
		Base:              base,
		DirectoryEndpoint: dirEndpoint,
		cfg:               cfg,
		changes:           make(map[uint64][]wireproto.Update),
		syncCh:            make(chan struct{}, 1),
	}
}

func (s *Streamer) dirPubAddr() string {
	return wireproto.ResolveAddr(s.Self.IPv4, s.DirectoryEndpoint.IPv4, s.DirectoryEndpoint.Local, wireproto.Publish, s.Layout)
}

func (s *Streamer) agentAddr(serial uint64, class wireproto.SocketClass) string {
	ep := wireproto.EndpointFromSerial(serial)
	return wireproto.ResolveAddr(s.Self.IPv4, ep.IPv4, ep.Local, class, s.Layout)
}

// Start subscribes to DIRECTORY_UPDATE (to learn the agent roster the
// consistent hasher resolves against) and, if checkpointing is
// requested, to SYNC as well (§4.7).
func (s *Streamer) Start() error {
	filters := [][]byte{{byte(wireproto.KindDirectoryUpdate)}}
	if s.cfg.Checkpoint {
		filters = append(filters, []byte{byte(wireproto.KindSync)})
	}
	return s.Chatter.Subscribe(s.dirPubAddr(), filters, s.handleDirectoryMessage)
}

func (s *Streamer) handleDirectoryMessage(raw []byte) {
	msg, err := wireproto.UnpackMessage(raw)
	if err != nil {
		s.Log.Printf("streamer: malformed directory broadcast: %v", err)
		return
	}
	switch msg.Kind {
	case wireproto.KindDirectoryUpdate:
		d, err := wireproto.UnpackDirectoryUpdate(wireproto.NewReader(msg.Body), 0)
		if err != nil {
			s.Log.Printf("streamer: malformed DIRECTORY_UPDATE: %v", err)
			return
		}
		s.UpdateAgents(d.Agents)
	case wireproto.KindSync:
		select {
		case s.syncCh <- struct{}{}:
		default:
		}
	}
}

// WaitForSync blocks until the next SYNC arrives or timeout elapses,
// used between checkpointed batches.
func (s *Streamer) WaitForSync(timeout time.Duration) bool {
	select {
	case <-s.syncCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Ingest resolves one edge's IN owner and either sends it immediately
// (BatchSize==0) or accumulates it for a later Flush (§4.7).
func (s *Streamer) Ingest(edge wireproto.Edge, insert bool) {
	owner, _ := s.FindAgent(edge, wireproto.In, true, 0, false)
	u := wireproto.Update{Edge: edge, Direction: wireproto.In, Insert: insert}

	if s.cfg.BatchSize <= 0 {
		s.sendOne(owner, u)
		return
	}

	s.changes[owner] = append(s.changes[owner], u)
	if len(s.changes[owner]) >= s.cfg.BatchSize {
		s.flushOne(owner)
	}
}

func (s *Streamer) sendOne(owner uint64, u wireproto.Update) {
	w := wireproto.NewWriter(24)
	wireproto.PackUpdate(w, u)
	if err := s.Chatter.Push(s.agentAddr(owner, wireproto.Pull), wireproto.Message{Kind: wireproto.KindUpdateEdge, Body: w.Bytes()}.Pack()); err != nil {
		s.Log.Printf("UPDATE_EDGE to %x failed: %v", owner, err)
	}
}

func (s *Streamer) flushOne(owner uint64) {
	updates := s.changes[owner]
	delete(s.changes, owner)
	if len(updates) == 0 {
		return
	}
	w := wireproto.NewWriter(len(updates) * 24)
	wireproto.PackUpdates(w, updates)
	if err := s.Chatter.Push(s.agentAddr(owner, wireproto.Pull), wireproto.Message{Kind: wireproto.KindUpdateEdges, Body: w.Bytes()}.Pack()); err != nil {
		s.Log.Printf("UPDATE_EDGES to %x failed: %v", owner, err)
	}
}

// Flush sends every accumulated batch, end-of-stream (§4.7).
func (s *Streamer) Flush() {
	for owner := range s.changes {
		s.flushOne(owner)
	}
}
