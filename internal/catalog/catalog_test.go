package catalog

import "testing"

func TestRecordAndHistory(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	const serial = uint64(0x7f000001_0001)
	if err := c.Record(serial, 1, "SAVE", "/tmp/out-1", 10, 20); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := c.Record(serial, 2, "DUMP", "/tmp/out-2", 11, 22); err != nil {
		t.Fatalf("Record: %v", err)
	}

	hist, err := c.History(serial)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("len(hist) = %d, want 2", len(hist))
	}
	if hist[0].Batch != 1 || hist[0].Kind != "SAVE" || hist[0].NumVertices != 10 {
		t.Fatalf("unexpected first entry: %+v", hist[0])
	}
	if hist[1].Batch != 2 || hist[1].Kind != "DUMP" || hist[1].NumEdges != 22 {
		t.Fatalf("unexpected second entry: %+v", hist[1])
	}
}

func TestHistoryEmptyForUnknownEndpoint(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	hist, err := c.History(999)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 0 {
		t.Fatalf("len(hist) = %d, want 0", len(hist))
	}
}
