package topk

import "testing"

func TestTopKRetainsLargest(t *testing.T) {
	tk := New(3)
	for _, s := range []float64{1, 5, 2, 9, 3, 8} {
		tk.Push(Result{Score: s})
	}
	got := tk.Results()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []float64{9, 8, 5}
	for i, w := range want {
		if got[i].Score != w {
			t.Fatalf("Results()[%d].Score = %v, want %v (full: %v)", i, got[i].Score, w, got)
		}
	}
}

func TestTopKZeroCapacity(t *testing.T) {
	tk := New(0)
	tk.Push(Result{Score: 1})
	if tk.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tk.Len())
	}
}
