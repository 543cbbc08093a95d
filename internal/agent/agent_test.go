package agent

import (
	"io"
	"log"
	"testing"

	"elga/internal/algorithm"
	"elga/internal/chatterbox"
	"elga/internal/config"
	"elga/internal/wireproto"
)

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestAgent(t *testing.T, local uint16) *Agent {
	t.Helper()
	tr := chatterbox.NewDefault()
	self := wireproto.Endpoint{IPv4: 1, Local: local}
	cb := chatterbox.New(tr, wireproto.LocalAddr(local, wireproto.Request), wireproto.LocalAddr(local, wireproto.Publish), wireproto.LocalAddr(local, wireproto.Pull), 8)
	dirEP := wireproto.Endpoint{IPv4: 1, Local: local + 100}
	cfg := config.Defaults()

	algo, ok := algorithm.ByName(string(cfg.Algo))
	if !ok {
		t.Fatalf("unknown algorithm %s", cfg.Algo)
	}

	a := New(self, tr, cb, dirEP, cfg, algo, discardLogger())
	if err := a.Chatter.Serve(a.handleRequest, a.handlePull); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Chatter.Close)

	// single-agent ring: every edge resolves locally without a live directory.
	a.UpdateAgents([]uint64{self.Serial()})
	return a
}

// TestSelfLoopFreeStarFinalize covers §8's single-agent star scenario:
// streaming {(0,1),(0,2),(0,3),(0,4)} as IN updates and finalizing the
// batch should leave nV=5 (the hub plus four leaves) and nE=4 (only IN
// edges count toward nE; the synthesized OUT counterparts don't).
func TestSelfLoopFreeStarFinalize(t *testing.T) {
	a := newTestAgent(t, 1)

	for _, leaf := range []uint64{1, 2, 3, 4} {
		a.updateSet = append(a.updateSet, wireproto.Update{
			Edge:      wireproto.Edge{Src: 0, Dst: leaf},
			Direction: wireproto.In,
			Insert:    true,
		})
	}

	a.FinalizeGraphBatch()

	if a.localNV != 5 {
		t.Errorf("localNV = %d, want 5", a.localNV)
	}
	if a.localNE != 4 {
		t.Errorf("localNE = %d, want 4", a.localNE)
	}
	hub, ok := a.vertices[0]
	if !ok {
		t.Fatalf("hub vertex 0 missing")
	}
	if len(hub.Out) != 4 {
		t.Errorf("hub out-degree = %d, want 4", len(hub.Out))
	}
}

func TestChangeEdgeDeleteErasesEmptyVertex(t *testing.T) {
	a := newTestAgent(t, 2)

	up := wireproto.Update{Edge: wireproto.Edge{Src: 10, Dst: 20}, Direction: wireproto.In, Insert: true}
	a.ChangeEdge(up, false)
	if _, ok := a.vertices[20]; !ok {
		t.Fatalf("vertex 20 not created on insert")
	}

	down := up
	down.Insert = false
	a.ChangeEdge(down, false)
	if _, ok := a.vertices[20]; ok {
		t.Errorf("vertex 20 should be erased once its last neighbor is removed")
	}
	if a.localNV != 0 || a.localNE != 0 {
		t.Errorf("localNV=%d localNE=%d, want 0,0 after full delete", a.localNV, a.localNE)
	}
}

func TestSendOutEdgesSynthesizesSymmetricLocally(t *testing.T) {
	a := newTestAgent(t, 3)
	a.vertices[5] = &VertexStorage{In: []uint64{6}, State: algorithm.Active}

	a.SendOutEdges(false)

	six, ok := a.vertices[6]
	if !ok {
		t.Fatalf("vertex 6 not created by symmetric OUT synthesis")
	}
	if len(six.Out) != 1 || six.Out[0] != 5 {
		t.Errorf("vertex 6 Out = %v, want [5]", six.Out)
	}
}
