package wireproto

import (
	"bytes"
	"testing"
)

func TestEndpointSerialRoundTrip(t *testing.T) {
	e := Endpoint{IPv4: 0x0a000001, Local: 42}
	got := EndpointFromSerial(e.Serial())
	if got != e {
		t.Fatalf("round trip = %+v, want %+v", got, e)
	}
}

func TestEndpointIsZero(t *testing.T) {
	if !(Endpoint{}).IsZero() {
		t.Fatalf("zero-value endpoint should be zero")
	}
	if (Endpoint{IPv4: 1}).IsZero() {
		t.Fatalf("endpoint with nonzero IPv4 should not be zero")
	}
}

func TestVAgentPackRoundTrip(t *testing.T) {
	v := VAgentID{Endpoint: Endpoint{IPv4: 0x7f000001, Local: 7}, VAgent: 1234}
	packed := v.Pack()
	back := VAgentFromPacked(packed)
	if back != v {
		t.Fatalf("round trip = %+v, want %+v", back, v)
	}
	if StripVAgent(packed) != v.Endpoint.Serial() {
		t.Fatalf("StripVAgent mismatch")
	}
}

func TestParseIPv4Shorthand(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10.0xff", "10.0.0.255"},
		{"1.2.3.4", "1.2.3.4"},
		{"127.0.0.1", "127.0.0.1"},
	}
	for _, c := range cases {
		ip, err := ParseIPv4(c.in)
		if err != nil {
			t.Fatalf("ParseIPv4(%q): %v", c.in, err)
		}
		if got := FormatIPv4(ip); got != c.want {
			t.Fatalf("ParseIPv4(%q) -> %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAddressScenario5(t *testing.T) {
	ip, err := ParseIPv4("1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	remote := RemoteAddr(ip, 15, Request, DefaultPortLayout)
	if remote != "tcp://1.2.3.4:17215" {
		t.Fatalf("remote = %q, want tcp://1.2.3.4:17215", remote)
	}
	local := LocalAddr(15, Request)
	if local != "inproc://15" {
		t.Fatalf("local = %q, want inproc://15", local)
	}
}

func TestResolveAddrSameHostVsRemote(t *testing.T) {
	self, _ := ParseIPv4("192.168.1.1")
	same := ResolveAddr(self, self, 3, Request, DefaultPortLayout)
	if same != LocalAddr(3, Request) {
		t.Fatalf("same-host resolved to %q, want local form", same)
	}
	other, _ := ParseIPv4("192.168.1.2")
	remote := ResolveAddr(self, other, 3, Request, DefaultPortLayout)
	if remote != RemoteAddr(other, 3, Request, DefaultPortLayout) {
		t.Fatalf("cross-host resolved to %q, want remote form", remote)
	}
}

func TestUpdatePackRoundTrip(t *testing.T) {
	u := Update{Edge: Edge{Src: 1, Dst: 2}, Direction: Out, Insert: true}
	w := NewWriter(0)
	PackUpdate(w, u)
	r := NewReader(w.Bytes())
	got, err := UnpackUpdate(r)
	if err != nil {
		t.Fatal(err)
	}
	if got != u {
		t.Fatalf("round trip = %+v, want %+v", got, u)
	}
}

func TestUpdatesListRoundTrip(t *testing.T) {
	us := []Update{
		{Edge: Edge{Src: 1, Dst: 2}, Direction: In, Insert: true},
		{Edge: Edge{Src: 3, Dst: 4}, Direction: Out, Insert: false},
	}
	w := NewWriter(0)
	PackUpdates(w, us)
	r := NewReader(w.Bytes())
	got, err := UnpackUpdates(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(us) {
		t.Fatalf("got %d updates, want %d", len(got), len(us))
	}
	for i := range us {
		if got[i] != us[i] {
			t.Fatalf("update %d = %+v, want %+v", i, got[i], us[i])
		}
	}
}

func TestSendUpdatesRoundTrip(t *testing.T) {
	m := SendUpdates{
		Flag: FlagOutSymmetric,
		From: Endpoint{IPv4: 10, Local: 2},
		Updates: []Update{
			{Edge: Edge{Src: 5, Dst: 6}, Direction: Out, Insert: true},
		},
	}
	w := NewWriter(0)
	PackSendUpdates(w, m)
	msg := Message{Kind: KindSendUpdates, Body: w.Bytes()}
	raw := msg.Pack()
	back, err := UnpackMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if back.Kind != KindSendUpdates {
		t.Fatalf("kind = %v, want SEND_UPDATES", back.Kind)
	}
	got, err := UnpackSendUpdates(NewReader(back.Body))
	if err != nil {
		t.Fatal(err)
	}
	if got.Flag != m.Flag || got.From != m.From || len(got.Updates) != 1 || got.Updates[0] != m.Updates[0] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDOKindOffsetAndBase(t *testing.T) {
	if KindStart.DO() != Kind(0x46) {
		t.Fatalf("KindStart.DO() = %#x, want 0x46", byte(KindStart.DO()))
	}
	if KindStart.DO().Base() != KindStart {
		t.Fatalf("DO().Base() did not round trip")
	}
	if KindStart.IsDO() {
		t.Fatalf("KindStart should not be a DO_* kind")
	}
	if !KindStart.DO().IsDO() {
		t.Fatalf("KindStart.DO() should be a DO_* kind")
	}
}

func TestDirectoryUpdateRoundTripNoSketch(t *testing.T) {
	d := DirectoryUpdate{Changed: true, Agents: []uint64{1, 2, 3}}
	w := NewWriter(0)
	PackDirectoryUpdate(w, d)
	got, err := UnpackDirectoryUpdate(NewReader(w.Bytes()), 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Changed != d.Changed || !bytes.Equal(u64sToBytes(got.Agents), u64sToBytes(d.Agents)) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDirectoryUpdateRoundTripWithSketch(t *testing.T) {
	blob := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	d := DirectoryUpdate{Changed: false, Agents: []uint64{9}, Sketch: blob}
	w := NewWriter(0)
	PackDirectoryUpdate(w, d)
	w.PutBytes(blob)
	got, err := UnpackDirectoryUpdate(NewReader(w.Bytes()), len(blob))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Sketch, blob) {
		t.Fatalf("sketch = %v, want %v", got.Sketch, blob)
	}
	if len(got.Agents) != 1 || got.Agents[0] != 9 {
		t.Fatalf("agents = %v, want [9]", got.Agents)
	}
}

func u64sToBytes(vs []uint64) []byte {
	w := NewWriter(0)
	PackU64List(w, vs)
	return w.Bytes()
}

func TestMessageKindRoundTrip(t *testing.T) {
	msg := Message{Kind: KindHeartbeat, Body: nil}
	back, err := UnpackMessage(msg.Pack())
	if err != nil {
		t.Fatal(err)
	}
	if back.Kind != KindHeartbeat || len(back.Body) != 0 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestUnpackMessageEmptyFrame(t *testing.T) {
	if _, err := UnpackMessage(nil); err == nil {
		t.Fatalf("expected error unpacking an empty frame")
	}
}
