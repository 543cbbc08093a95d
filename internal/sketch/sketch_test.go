package sketch

import "testing"

func TestCountMinQueryNeverUnderestimates(t *testing.T) {
	cm := NewCountMin(64, 4)
	for i := 0; i < 10; i++ {
		cm.Count(42)
	}
	if got := cm.Query(42); got < 10 {
		t.Fatalf("Query(42) = %d, want >= 10", got)
	}
	if got := cm.Query(9999); got < 0 {
		t.Fatalf("Query(9999) = %d, want >= 0", got)
	}
}

func TestCountMinMergeAdds(t *testing.T) {
	a := NewCountMin(32, 3)
	b := NewCountMin(32, 3)
	a.Count(1)
	b.Count(1)
	b.Count(1)
	a.Merge(b)
	if got := a.Query(1); got < 3 {
		t.Fatalf("Query(1) after merge = %d, want >= 3", got)
	}
}

func TestCountMinDisjointMergeTakesMax(t *testing.T) {
	a := NewCountMin(32, 3)
	b := NewCountMin(32, 3)
	for i := 0; i < 5; i++ {
		a.Count(7)
	}
	for i := 0; i < 2; i++ {
		b.Count(7)
	}
	a.DisjointMerge(b)
	if got := a.Query(7); got != 5 {
		t.Fatalf("Query(7) after disjoint merge = %d, want 5", got)
	}
}

func TestCountMinSerializeRoundTrip(t *testing.T) {
	cm := NewCountMin(16, 4)
	for i := uint64(0); i < 50; i++ {
		cm.Count(i % 7)
	}
	buf := cm.Serialize()
	if len(buf) != SerializedSize(16, 4) {
		t.Fatalf("Serialize length = %d, want %d", len(buf), SerializedSize(16, 4))
	}
	back, err := Deserialize(16, 4, buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	for k := uint64(0); k < 7; k++ {
		if cm.Query(k) != back.Query(k) {
			t.Fatalf("round-trip mismatch at key %d: %d != %d", k, cm.Query(k), back.Query(k))
		}
	}
}

func TestCountMinWidthRoundedToPowerOfTwo(t *testing.T) {
	cm := NewCountMin(100, 2)
	if cm.Width() != 128 {
		t.Fatalf("Width() = %d, want 128", cm.Width())
	}
}

func TestCountSketchQueryDeterministic(t *testing.T) {
	cs := NewCountSketch(64, 5)
	for i := 0; i < 20; i++ {
		cs.Count(17)
	}
	if cs.Query(17) != cs.Query(17) {
		t.Fatalf("Query not deterministic")
	}
}

func TestCountSketchMerge(t *testing.T) {
	a := NewCountSketch(64, 5)
	b := NewCountSketch(64, 5)
	a.Count(3)
	b.Count(3)
	merged := NewCountSketch(64, 5)
	merged.Count(3)
	merged.Count(3)
	a.Merge(b)
	if a.Query(3) != merged.Query(3) {
		t.Fatalf("Merge(a,b).Query(3) = %d, want %d", a.Query(3), merged.Query(3))
	}
}
