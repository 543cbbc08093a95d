package algorithm

import "testing"

func TestByNameResolvesAllFive(t *testing.T) {
	for _, name := range []string{"PAGERANK", "WCC", "BFS", "KCORE", "LPA"} {
		h, ok := ByName(name)
		if !ok || h == nil {
			t.Fatalf("ByName(%q) failed", name)
		}
		if h.Name() != name {
			t.Fatalf("ByName(%q).Name() = %q", name, h.Name())
		}
		if h.NotificationSize() <= 0 || h.ReplicaSize() <= 0 || h.QueryRespSize() <= 0 {
			t.Fatalf("%s: non-positive fixed size", name)
		}
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, ok := ByName("NOPE"); ok {
		t.Fatalf("expected ByName to reject unknown algorithm")
	}
}

func TestWCCConvergesToMinLabel(t *testing.T) {
	w := NewWCC()
	local, out := w.Run(5, nil, Neighbors{}, 10, Inbox{})
	if out.NextState != Active {
		t.Fatalf("first run should be active")
	}
	if idOf(local, 0) != 5 {
		t.Fatalf("initial label = %d, want 5", idOf(local, 0))
	}

	local2, out2 := w.Run(5, local, Neighbors{}, 10, Inbox{Notifications: [][]byte{le64(2)}})
	if idOf(local2, 0) != 2 {
		t.Fatalf("after hearing 2, label = %d, want 2", idOf(local2, 0))
	}
	if out2.NextState != Active {
		t.Fatalf("label change should reactivate vertex")
	}
}

func TestBFSRootStartsAtZero(t *testing.T) {
	b := NewBFS()
	start := b.SetStart(0)
	if distOf(start) != 0 {
		t.Fatalf("root distance = %d, want 0", distOf(start))
	}
	other := b.SetStart(1)
	if distOf(other) != infDistance {
		t.Fatalf("non-root distance = %d, want infDistance", distOf(other))
	}

	local, out := b.Run(3, nil, Neighbors{}, 10, Inbox{Notifications: [][]byte{le64(1)}})
	if distOf(local) != 2 {
		t.Fatalf("distance = %d, want 2", distOf(local))
	}
	if out.NextState != Active {
		t.Fatalf("improved distance should activate vertex")
	}
}

func TestPageRankInitialRankPositive(t *testing.T) {
	p := NewPageRank(0.85)
	local, _ := p.Run(0, nil, Neighbors{Out: []uint64{1, 2}}, 4, Inbox{})
	if rankOf(local) <= 0 {
		t.Fatalf("initial rank should be positive, got %v", rankOf(local))
	}
}
