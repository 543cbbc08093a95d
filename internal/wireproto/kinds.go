package wireproto

// Kind is the one-byte leading tag every message begins with (§6).
type Kind uint8

const (
	KindGetDirectories Kind = 0x01
	KindGetDirectory   Kind = 0x02
	KindDirectoryJoin  Kind = 0x03
	KindDirectoryLeave Kind = 0x04
	KindShutdown       Kind = 0x05

	// Client-directive kinds: the directory master acks and rebroadcasts
	// these unchanged (§4.4); a directory rebroadcasts them to agents
	// rewritten to the DO_* variant (kind + DOOffset, §4.5/§9).
	KindStart  Kind = 0x06
	KindSave   Kind = 0x07
	KindDump   Kind = 0x08
	KindUpdate Kind = 0x09
	KindReset  Kind = 0x0A
	KindChkT   Kind = 0x0B
	KindVA     Kind = 0x0C
	KindCSLB   Kind = 0x0D

	KindAgentJoin       Kind = 0x10
	KindAgentLeave      Kind = 0x11
	KindDirectoryUpdate Kind = 0x12
	KindNeedDirectory   Kind = 0x13
	KindCSUpdate        Kind = 0x14
	KindReadyNVNE       Kind = 0x15
	KindReadyNVNEInt    Kind = 0x16
	KindReadySync       Kind = 0x17
	KindReadySyncInt    Kind = 0x18
	KindSync            Kind = 0x19
	KindHaveUpdate      Kind = 0x1A
	KindSimpleSync      Kind = 0x1B
	KindSimpleSyncDone  Kind = 0x1C

	KindUpdateEdge  Kind = 0x20
	KindUpdateEdges Kind = 0x21
	KindSendUpdates Kind = 0x22
	KindAckUpdates  Kind = 0x23
	KindNV          Kind = 0x24
	KindOutVN       Kind = 0x25
	KindRV          Kind = 0x26
	KindQuery       Kind = 0x27
	KindHeartbeat   Kind = 0x28
	KindDisconnect  Kind = 0x29
)

// DOOffset is added to a client-directive Kind to produce its directory's
// rebroadcast-to-agents form (§9 "DO_* variant").
const DOOffset = 0x40

// DO returns the DO_* variant of a client-directive kind.
func (k Kind) DO() Kind { return k + DOOffset }

// IsDO reports whether k is already a DO_* variant.
func (k Kind) IsDO() bool { return k >= 0x40 && k < 0x40+0x10 }

// Base strips a DO_* variant back to its client-directive base kind; a
// no-op if k isn't a DO_* kind.
func (k Kind) Base() Kind {
	if k.IsDO() {
		return k - DOOffset
	}
	return k
}

var kindNames = map[Kind]string{
	KindGetDirectories:  "GET_DIRECTORIES",
	KindGetDirectory:    "GET_DIRECTORY",
	KindDirectoryJoin:   "DIRECTORY_JOIN",
	KindDirectoryLeave:  "DIRECTORY_LEAVE",
	KindShutdown:        "SHUTDOWN",
	KindStart:           "START",
	KindSave:            "SAVE",
	KindDump:            "DUMP",
	KindUpdate:          "UPDATE",
	KindReset:           "RESET",
	KindChkT:            "CHK_T",
	KindVA:              "VA",
	KindCSLB:            "CS_LB",
	KindAgentJoin:       "AGENT_JOIN",
	KindAgentLeave:      "AGENT_LEAVE",
	KindDirectoryUpdate: "DIRECTORY_UPDATE",
	KindNeedDirectory:   "NEED_DIRECTORY",
	KindCSUpdate:        "CS_UPDATE",
	KindReadyNVNE:       "READY_NV_NE",
	KindReadyNVNEInt:    "READY_NV_NE_INT",
	KindReadySync:       "READY_SYNC",
	KindReadySyncInt:    "READY_SYNC_INT",
	KindSync:            "SYNC",
	KindHaveUpdate:      "HAVE_UPDATE",
	KindSimpleSync:      "SIMPLE_SYNC",
	KindSimpleSyncDone:  "SIMPLE_SYNC_DONE",
	KindUpdateEdge:      "UPDATE_EDGE",
	KindUpdateEdges:     "UPDATE_EDGES",
	KindSendUpdates:     "SEND_UPDATES",
	KindAckUpdates:      "ACK_UPDATES",
	KindNV:              "NV",
	KindOutVN:           "OUT_VN",
	KindRV:              "RV",
	KindQuery:           "QUERY",
	KindHeartbeat:       "HEARTBEAT",
	KindDisconnect:      "DISCONNECT",
}

func (k Kind) String() string {
	if k.IsDO() {
		return "DO_" + Kind(k-DOOffset).String()
	}
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN_KIND"
}

// Message is one wire message: a one-byte kind plus its body.
type Message struct {
	Kind Kind
	Body []byte
}

// Pack returns kind-byte || body.
func (m Message) Pack() []byte {
	out := make([]byte, 1+len(m.Body))
	out[0] = byte(m.Kind)
	copy(out[1:], m.Body)
	return out
}

// UnpackMessage splits a raw frame into its kind and body. A zero-length
// frame is a Protocol error: every message has at least a kind byte.
func UnpackMessage(raw []byte) (Message, error) {
	if len(raw) == 0 {
		return Message{}, errShortFrame
	}
	return Message{Kind: Kind(raw[0]), Body: raw[1:]}, nil
}

var errShortFrame = shortFrameError{}

type shortFrameError struct{}

func (shortFrameError) Error() string { return "wireproto: empty frame, missing kind byte" }
