package chatterbox

import (
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never became true")
}

func TestRequestReplyRoundTrip(t *testing.T) {
	tr := NewDefault()
	cb := New(tr, "inproc://1", "inproc://1.pub", "inproc://1.pull", 4)
	err := cb.Serve(func(req []byte) []byte {
		out := make([]byte, len(req))
		for i, b := range req {
			out[i] = b + 1
		}
		return out
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Close()

	client := New(tr, "inproc://2", "inproc://2.pub", "inproc://2.pull", 4)

	resp, err := client.Request("inproc://1", []byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{2, 3, 4}
	for i := range want {
		if resp[i] != want[i] {
			t.Fatalf("resp = %v, want %v", resp, want)
		}
	}
}

func TestPullFireAndForget(t *testing.T) {
	tr := NewDefault()
	var mu sync.Mutex
	var got []byte
	cb := New(tr, "inproc://10", "inproc://10.pub", "inproc://10.pull", 4)
	err := cb.Serve(nil, func(msg []byte) {
		mu.Lock()
		got = msg
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Close()

	client := New(tr, "inproc://11", "inproc://11.pub", "inproc://11.pull", 4)
	if err := client.Push("inproc://10.pull", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return string(got) == "hello"
	})
}

func TestPublishSubscribeFiltersByLeadingByte(t *testing.T) {
	tr := NewDefault()
	pub := New(tr, "inproc://20", "inproc://20.pub", "inproc://20.pull", 4)
	if err := pub.Serve(nil, nil); err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	var mu sync.Mutex
	var received [][]byte

	sub := New(tr, "inproc://21", "inproc://21.pub", "inproc://21.pull", 4)
	err := sub.Subscribe("inproc://20.pub", [][]byte{{0xAA}}, func(msg []byte) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}

	// give the subscribe registration time to land before publishing
	time.Sleep(20 * time.Millisecond)

	pub.Publish([]byte{0xAA, 1})
	pub.Publish([]byte{0xBB, 2}) // should be filtered out

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0][0] != 0xAA {
		t.Fatalf("received = %v, want exactly one message starting 0xAA", received)
	}
}

func TestOutboundPoolEvictsOverLimit(t *testing.T) {
	tr := NewDefault()
	servers := make([]*Chatterbox, 3)
	for i := range servers {
		addr := "inproc://srv" + string(rune('A'+i))
		cb := New(tr, addr, addr+".pub", addr+".pull", 4)
		if err := cb.Serve(func(req []byte) []byte { return req }, nil); err != nil {
			t.Fatal(err)
		}
		defer cb.Close()
		servers[i] = cb
	}

	client := New(tr, "inproc://cli", "inproc://cli.pub", "inproc://cli.pull", 2)
	for i := range servers {
		addr := "inproc://srv" + string(rune('A'+i))
		if _, err := client.Request(addr, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if client.outbound.order.Len() > 2 {
		t.Fatalf("pool size = %d, want <= 2", client.outbound.order.Len())
	}
}
