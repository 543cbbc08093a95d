// Package directorymaster implements the bootstrapping rendezvous of §4.4:
// a singleton that tracks which directory endpoints exist and helps new
// directories and participants find each other. It holds no graph state.
package directorymaster

import (
	"log"
	"math/rand"
	"sort"
	"sync"

	"elga/internal/chatterbox"
	"elga/internal/procerrors"
	"elga/internal/wireproto"
)

// passthroughKinds are rebroadcast to directory subscribers unchanged,
// after being acknowledged on the reply socket (§4.4).
var passthroughKinds = map[wireproto.Kind]bool{
	wireproto.KindStart:  true,
	wireproto.KindSave:   true,
	wireproto.KindDump:   true,
	wireproto.KindUpdate: true,
	wireproto.KindReset:  true,
	wireproto.KindChkT:   true,
	wireproto.KindVA:     true,
	wireproto.KindCSLB:   true,
}

// Master is the directory master: it serves GET_DIRECTORIES/GET_DIRECTORY
// on its reply socket, and publishes DIRECTORY_JOIN/LEAVE/SHUTDOWN plus
// passthroughs to subscribed directories.
type Master struct {
	Chatter *chatterbox.Chatterbox
	Log     *log.Logger

	mu          sync.Mutex
	directories []uint64 // endpoint serials, sorted
	rng         func(n int) int
}

// New wires a Master onto an already-constructed Chatterbox (reply/pub/pull
// addresses are the master's own -- it never dials a pull socket itself).
func New(cb *chatterbox.Chatterbox, logger *log.Logger) *Master {
	return &Master{Chatter: cb, Log: logger, rng: rand.Intn}
}

// Serve starts the reply loop. The master has no pull socket use (§4.4
// lists only reply-socket operations).
func (m *Master) Serve() error {
	return m.Chatter.Serve(m.handleRequest, nil)
}

func (m *Master) handleRequest(req []byte) []byte {
	msg, err := wireproto.UnpackMessage(req)
	if err != nil {
		m.Log.Printf("malformed request: %v", err)
		return nil
	}

	switch msg.Kind {
	case wireproto.KindGetDirectories:
		return m.replyGetDirectories()
	case wireproto.KindGetDirectory:
		return m.replyGetDirectory()
	case wireproto.KindDirectoryJoin:
		return m.handleJoin(msg.Body)
	case wireproto.KindDirectoryLeave:
		return m.handleLeave(msg.Body)
	case wireproto.KindShutdown:
		return m.handleShutdown()
	default:
		if passthroughKinds[msg.Kind] {
			return m.handlePassthrough(msg)
		}
		// Unknown message kind is a programming error per §4.4: fatal.
		panic(procerrors.Protof("directorymaster: unknown message kind %s", msg.Kind))
	}
}

func (m *Master) replyGetDirectories() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := wireproto.NewWriter(len(m.directories) * 8)
	wireproto.PackU64List(w, m.directories)
	return w.Bytes()
}

func (m *Master) replyGetDirectory() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := wireproto.NewWriter(8)
	if len(m.directories) == 0 {
		wireproto.PackOptionalSerial(w, false, 0)
		return w.Bytes()
	}
	pick := m.directories[m.rng(len(m.directories))]
	wireproto.PackOptionalSerial(w, true, pick)
	return w.Bytes()
}

func (m *Master) handleJoin(body []byte) []byte {
	serial, err := wireproto.UnpackEndpoint(wireproto.NewReader(body))
	if err != nil {
		panic(procerrors.Protof("directorymaster: malformed DIRECTORY_JOIN: %v", err))
	}

	m.mu.Lock()
	m.insertSortedLocked(serial.Serial())
	m.mu.Unlock()

	m.publishJoinLeave(wireproto.KindDirectoryJoin, serial.Serial())
	return nil
}

func (m *Master) handleLeave(body []byte) []byte {
	serial, err := wireproto.UnpackEndpoint(wireproto.NewReader(body))
	if err != nil {
		panic(procerrors.Protof("directorymaster: malformed DIRECTORY_LEAVE: %v", err))
	}

	m.mu.Lock()
	m.eraseLocked(serial.Serial())
	m.mu.Unlock()

	m.publishJoinLeave(wireproto.KindDirectoryLeave, serial.Serial())
	return nil
}

func (m *Master) publishJoinLeave(kind wireproto.Kind, serial uint64) {
	w := wireproto.NewWriter(8)
	wireproto.PackEndpoint(w, wireproto.EndpointFromSerial(serial))
	m.Chatter.Publish(wireproto.Message{Kind: kind, Body: w.Bytes()}.Pack())
}

func (m *Master) handleShutdown() []byte {
	m.Chatter.Publish(wireproto.Message{Kind: wireproto.KindShutdown}.Pack())
	go m.Chatter.Close()
	return nil
}

// handlePassthrough acks and rebroadcasts a client-directive message to
// subscribed directories unchanged (§4.4 -- the directory master, unlike
// the directory itself, does not rewrite to the DO_* variant).
func (m *Master) handlePassthrough(msg wireproto.Message) []byte {
	m.Chatter.Publish(msg.Pack())
	return nil
}

func (m *Master) insertSortedLocked(serial uint64) {
	i := sort.Search(len(m.directories), func(i int) bool { return m.directories[i] >= serial })
	if i < len(m.directories) && m.directories[i] == serial {
		return
	}
	m.directories = append(m.directories, 0)
	copy(m.directories[i+1:], m.directories[i:])
	m.directories[i] = serial
}

func (m *Master) eraseLocked(serial uint64) {
	i := sort.Search(len(m.directories), func(i int) bool { return m.directories[i] >= serial })
	if i < len(m.directories) && m.directories[i] == serial {
		m.directories = append(m.directories[:i], m.directories[i+1:]...)
	}
}
