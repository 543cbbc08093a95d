package streamer

import (
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"elga/internal/chatterbox"
	"elga/internal/wireproto"
)

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestRunFileBatchesPerOwner(t *testing.T) {
	tr := chatterbox.NewDefault()
	self := wireproto.Endpoint{IPv4: 1, Local: 1}
	cb := chatterbox.New(tr, wireproto.LocalAddr(1, wireproto.Request), wireproto.LocalAddr(1, wireproto.Publish), wireproto.LocalAddr(1, wireproto.Pull), 4)
	dirEP := wireproto.Endpoint{IPv4: 1, Local: 200}

	s := New(self, tr, cb, dirEP, Config{BatchSize: 10}, discardLogger())
	s.UpdateAgents([]uint64{wireproto.Endpoint{IPv4: 1, Local: 9}.Serial()})

	var gotBodies [][]byte
	agentCB := chatterbox.New(tr, wireproto.LocalAddr(9, wireproto.Request), wireproto.LocalAddr(9, wireproto.Publish), wireproto.LocalAddr(9, wireproto.Pull), 4)
	err := agentCB.Serve(nil, func(msg []byte) {
		gotBodies = append(gotBodies, msg)
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(agentCB.Close)

	input := "1 0 1 0.0 0\n1 0 2 0.0 0\n-1 0 3 0.0 0\n"
	if err := s.RunFile(strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(gotBodies) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if len(gotBodies) != 1 {
		t.Fatalf("got %d pushes to the owning agent, want 1 batched UPDATE_EDGES", len(gotBodies))
	}

	msg, err := wireproto.UnpackMessage(gotBodies[0])
	if err != nil {
		t.Fatal(err)
	}
	if msg.Kind != wireproto.KindUpdateEdges {
		t.Fatalf("kind = %s, want UPDATE_EDGES", msg.Kind)
	}
	updates, err := wireproto.UnpackUpdates(wireproto.NewReader(msg.Body))
	if err != nil {
		t.Fatal(err)
	}
	if len(updates) != 3 {
		t.Fatalf("got %d updates, want 3", len(updates))
	}
}
