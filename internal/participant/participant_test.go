package participant

import (
	"io"
	"log"
	"testing"

	"elga/internal/chatterbox"
	"elga/internal/wireproto"
)

func newTestBase(t *testing.T) *Base {
	t.Helper()
	self := wireproto.Endpoint{IPv4: 0x7f000001, Local: 1}
	logger := log.New(io.Discard, "", 0)
	return NewBase(self, 1, wireproto.DefaultPortLayout, chatterbox.NewDefault(), logger)
}

func packedEndpoint(local uint16) uint64 {
	ep := wireproto.Endpoint{IPv4: 0x7f000001, Local: local}
	return wireproto.VAgentID{Endpoint: ep, VAgent: 0}.Pack()
}

func TestUpdateAgentsAndReplicaAgents(t *testing.T) {
	b := newTestBase(t)
	agents := []uint64{packedEndpoint(1), packedEndpoint(2), packedEndpoint(3)}
	b.UpdateAgents(agents)

	if b.Hasher().Len() != 3 {
		t.Fatalf("hasher len = %d, want 3", b.Hasher().Len())
	}
	dests := b.ReplicaAgents(42)
	if len(dests) != 1 {
		t.Fatalf("ReplicaAgents with replication.None should return 1 dest, got %d", len(dests))
	}
}

func TestFindAgentMemoizesResult(t *testing.T) {
	b := newTestBase(t)
	agents := []uint64{packedEndpoint(1), packedEndpoint(2)}
	b.UpdateAgents(agents)

	edge := wireproto.Edge{Src: 10, Dst: 20}
	a1, _ := b.FindAgent(edge, wireproto.Out, false, 0, true)
	a2, _ := b.FindAgent(edge, wireproto.Out, false, 0, true)
	if a1 != a2 {
		t.Fatalf("memoized FindAgent should return the same winner: %d != %d", a1, a2)
	}

	b.UpdateAgents(agents)
	a3, _ := b.FindAgent(edge, wireproto.Out, false, 0, true)
	_ = a3
}

func TestFindAgentOwnerBranchSingleReplica(t *testing.T) {
	b := newTestBase(t)
	only := packedEndpoint(1)
	b.UpdateAgents([]uint64{only})

	edge := wireproto.Edge{Src: 10, Dst: 20}
	winner, have := b.FindAgent(edge, wireproto.Out, true, 0, true)
	if winner != only {
		t.Fatalf("single-replica owner lookup should return the only agent, got %d want %d", winner, only)
	}
	if have {
		t.Fatalf("owner branch should always report have_ownership=false")
	}
}
