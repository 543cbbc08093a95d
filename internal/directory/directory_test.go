package directory

import (
	"io"
	"log"
	"testing"
	"time"

	"elga/internal/chatterbox"
	"elga/internal/directorymaster"
	"elga/internal/wireproto"
)

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

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

func newTestDirectory(t *testing.T, tr chatterbox.Transport, local uint16, masterEP wireproto.Endpoint) *Directory {
	t.Helper()
	self := wireproto.Endpoint{IPv4: 1, Local: local}
	addr := wireproto.LocalAddr(local, wireproto.Request)
	cb := chatterbox.New(tr, addr, wireproto.LocalAddr(local, wireproto.Publish), wireproto.LocalAddr(local, wireproto.Pull), 8)
	d := New(self, cb, masterEP, wireproto.DefaultPortLayout, Config{HeartbeatInterval: 10 * time.Millisecond}, discardLogger())
	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestAgentJoinIncrementsRosterAndArmsUpdate(t *testing.T) {
	tr := chatterbox.NewDefault()
	masterLocal := uint16(100)
	masterEP := wireproto.Endpoint{IPv4: 1, Local: masterLocal}
	masterCB := chatterbox.New(tr, wireproto.LocalAddr(masterLocal, wireproto.Request), wireproto.LocalAddr(masterLocal, wireproto.Publish), wireproto.LocalAddr(masterLocal, wireproto.Pull), 8)
	m := directorymaster.New(masterCB, discardLogger())
	if err := m.Serve(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(masterCB.Close)

	d := newTestDirectory(t, tr, 1, masterEP)

	agentEP := wireproto.Endpoint{IPv4: 1, Local: 5}
	packed := wireproto.VAgentID{Endpoint: agentEP, VAgent: 4}.Pack()
	w := wireproto.NewWriter(8)
	wireproto.PackU64List(w, []uint64{packed})

	client := chatterbox.New(tr, "inproc://ajcli", "inproc://ajcli.pub", "inproc://ajcli.pull", 4)
	if err := client.Push(wireproto.LocalAddr(1, wireproto.Pull), wireproto.Message{Kind: wireproto.KindAgentJoin, Body: w.Bytes()}.Pack()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.agents) == 1
	})

	d.mu.Lock()
	pending := d.pendingUpdate
	d.mu.Unlock()
	if !pending {
		t.Fatalf("expected pendingUpdate armed after AGENT_JOIN")
	}
}

func TestReadySyncReachesAgentCountEmitsSync(t *testing.T) {
	tr := chatterbox.NewDefault()
	masterLocal := uint16(101)
	masterEP := wireproto.Endpoint{IPv4: 1, Local: masterLocal}
	masterCB := chatterbox.New(tr, wireproto.LocalAddr(masterLocal, wireproto.Request), wireproto.LocalAddr(masterLocal, wireproto.Publish), wireproto.LocalAddr(masterLocal, wireproto.Pull), 8)
	m := directorymaster.New(masterCB, discardLogger())
	if err := m.Serve(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(masterCB.Close)

	d := newTestDirectory(t, tr, 2, masterEP)

	// register two agents directly so agentCountLocked() == 2
	d.mu.Lock()
	d.agents[wireproto.Endpoint{IPv4: 1, Local: 10}.Serial()] = 1
	d.agents[wireproto.Endpoint{IPv4: 1, Local: 11}.Serial()] = 1
	d.mu.Unlock()

	var gotSync bool
	sub := chatterbox.New(tr, "inproc://rscli", "inproc://rscli.pub", "inproc://rscli.pull", 4)
	err := sub.Subscribe(wireproto.LocalAddr(2, wireproto.Publish), [][]byte{{byte(wireproto.KindSync)}}, func(msg []byte) {
		gotSync = true
	})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	w := wireproto.NewWriter(8)
	wireproto.PackReadySync(w, wireproto.ReadySync{Dormant: 0})
	body := w.Bytes()

	client := chatterbox.New(tr, "inproc://rspush", "inproc://rspush.pub", "inproc://rspush.pull", 4)
	for i := 0; i < 2; i++ {
		if err := client.Push(wireproto.LocalAddr(2, wireproto.Pull), wireproto.Message{Kind: wireproto.KindReadySync, Body: body}.Pack()); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, func() bool { return gotSync })

	d.mu.Lock()
	batch := d.batch
	d.mu.Unlock()
	if batch != 1 {
		t.Fatalf("batch = %d, want 1 after dormant_sum=0 SYNC", batch)
	}
}
