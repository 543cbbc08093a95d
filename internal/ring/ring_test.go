package ring

import (
	"testing"

	"elga/internal/replication"
)

func TestFindOnEmptyRing(t *testing.T) {
	h := New(replication.None{})
	if got := h.Find(5); got != nil {
		t.Fatalf("Find on empty ring = %v, want nil", got)
	}
	agent, have := h.FindOne(5, 0, true)
	if agent != 0 || have {
		t.Fatalf("FindOne on empty ring = (%d, %v), want (0, false)", agent, have)
	}
}

func TestFindReturnsReplicationCount(t *testing.T) {
	h := New(replication.None{})
	h.UpdateAgents([]uint64{1, 2, 3, 4, 5})
	for k := uint64(0); k < 50; k++ {
		got := h.Find(k)
		if len(got) != 1 {
			t.Fatalf("Find(%d) returned %d agents, want 1", k, len(got))
		}
	}
}

type fixedRM struct{ n int }

func (f fixedRM) Query(uint64) int { return f.n }

func TestFindClampsToRingSize(t *testing.T) {
	h := New(fixedRM{n: 100})
	h.UpdateAgents([]uint64{10, 20, 30})
	got := h.Find(1)
	if len(got) != 3 {
		t.Fatalf("Find with r=100 on a 3-ring = %d agents, want 3", len(got))
	}
}

func TestFindIsDeterministicAcrossRebuilds(t *testing.T) {
	h := New(replication.None{})
	h.UpdateAgents([]uint64{10, 20, 30, 40})
	a := h.Find(777)
	h.UpdateAgents([]uint64{40, 30, 20, 10}) // same set, different input order
	b := h.Find(777)
	if len(a) != len(b) || a[0] != b[0] {
		t.Fatalf("Find not invariant to input order: %v vs %v", a, b)
	}
}

func TestFindOneOwnerCheck(t *testing.T) {
	h := New(fixedRM{n: 3})
	h.UpdateAgents([]uint64{1, 2, 3, 4, 5})
	dests := h.Find(99)
	agent, have := h.FindOne(99, dests[0], true)
	if !have {
		t.Fatalf("FindOne reported no ownership for a member of its own Find set")
	}
	found := false
	for _, d := range dests {
		if d == agent {
			found = true
		}
	}
	if !found {
		t.Fatalf("FindOne returned %d, not a member of Find(99)=%v", agent, dests)
	}
}

func TestAgentsIsRingOrderedAndCopied(t *testing.T) {
	h := New(replication.None{})
	h.UpdateAgents([]uint64{5, 1, 3})
	got := h.Agents()
	if len(got) != 3 {
		t.Fatalf("Agents() len = %d, want 3", len(got))
	}
	got[0] = 999
	if h.Agents()[0] == 999 {
		t.Fatalf("Agents() did not return a defensive copy")
	}
}
