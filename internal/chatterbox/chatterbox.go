package chatterbox

import (
	"fmt"
	"sync"

	"elga/internal/wireproto"
)

// ReplyHandler answers one request frame with a reply frame.
type ReplyHandler func(req []byte) []byte

// PullHandler processes one fire-and-forget frame; it never replies.
type PullHandler func(msg []byte)

// Chatterbox is the three-socket object of §2 owned by every participant:
// reply (request/response), publish (broadcast, subscription-filtered by
// leading byte), and pull (fan-in, fire-and-forget).
type Chatterbox struct {
	transport Transport

	replyAddr string
	pubAddr   string
	pullAddr  string

	replyHandler ReplyHandler
	pullHandler  PullHandler

	replyLn Listener
	pullLn  Listener
	pubLn   Listener

	mu   sync.Mutex
	subs []*subscriber

	outbound *outboundPool

	stopped bool
}

type subscriber struct {
	conn    Conn
	filters [][]byte // leading-byte prefixes; nil/empty = subscribe to everything
}

// New creates a chatterbox bound to the three addresses. replyAddr/
// pubAddr/pullAddr are typically wireproto.LocalAddr/RemoteAddr outputs
// for the participant's own (ip, local).
func New(transport Transport, replyAddr, pubAddr, pullAddr string, lruLimit int) *Chatterbox {
	return &Chatterbox{
		transport: transport,
		replyAddr: replyAddr,
		pubAddr:   pubAddr,
		pullAddr:  pullAddr,
		outbound:  newOutboundPool(transport, lruLimit),
	}
}

// Serve starts the three accept loops. replyHandler and pullHandler may be
// nil if this participant doesn't answer requests / accept pushes (e.g. a
// one-shot client only dials out).
func (cb *Chatterbox) Serve(replyHandler ReplyHandler, pullHandler PullHandler) error {
	cb.replyHandler = replyHandler
	cb.pullHandler = pullHandler

	if replyHandler != nil {
		ln, err := cb.transport.Listen(cb.replyAddr)
		if err != nil {
			return fmt.Errorf("chatterbox: reply listen %s: %w", cb.replyAddr, err)
		}
		cb.replyLn = ln
		go cb.serveReply(ln)
	}
	if pullHandler != nil {
		ln, err := cb.transport.Listen(cb.pullAddr)
		if err != nil {
			return fmt.Errorf("chatterbox: pull listen %s: %w", cb.pullAddr, err)
		}
		cb.pullLn = ln
		go cb.servePull(ln)
	}
	{
		ln, err := cb.transport.Listen(cb.pubAddr)
		if err != nil {
			return fmt.Errorf("chatterbox: pub listen %s: %w", cb.pubAddr, err)
		}
		cb.pubLn = ln
		go cb.servePub(ln)
	}
	return nil
}

func (cb *Chatterbox) serveReply(ln Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func(c Conn) {
			defer c.Close()
			// pooled outbound connections carry many requests in turn
			for {
				req, err := c.ReadFrame()
				if err != nil {
					return
				}
				resp := cb.replyHandler(req)
				if err := c.WriteFrame(resp); err != nil {
					return
				}
			}
		}(conn)
	}
}

func (cb *Chatterbox) servePull(ln Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func(c Conn) {
			defer c.Close()
			msg, err := c.ReadFrame()
			if err != nil {
				return
			}
			cb.pullHandler(msg)
		}(conn)
	}
}

// subscribeControlByte is the first byte of a subscribe-registration
// frame on the publish socket's accept connection, distinguishing it from
// an ordinary published message replayed by a misbehaving peer.
const subscribeControlByte = 0xFE

func (cb *Chatterbox) servePub(ln Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// the subscriber's first frame declares its filters
		frame, err := conn.ReadFrame()
		if err != nil {
			conn.Close()
			continue
		}
		filters := decodeSubscribeFrame(frame)
		cb.mu.Lock()
		cb.subs = append(cb.subs, &subscriber{conn: conn, filters: filters})
		cb.mu.Unlock()
	}
}

func decodeSubscribeFrame(frame []byte) [][]byte {
	if len(frame) < 1 || frame[0] != subscribeControlByte {
		return nil
	}
	r := wireproto.NewReader(frame[1:])
	var filters [][]byte
	for !r.AtEnd() {
		n, err := r.U8()
		if err != nil {
			break
		}
		b, err := r.Bytes(int(n))
		if err != nil {
			break
		}
		filters = append(filters, append([]byte(nil), b...))
	}
	return filters
}

func encodeSubscribeFrame(filters [][]byte) []byte {
	w := wireproto.NewWriter(1)
	w.PutU8(subscribeControlByte)
	for _, f := range filters {
		w.PutU8(uint8(len(f)))
		w.PutBytes(f)
	}
	return w.Bytes()
}

// Subscribe dials a peer's publish socket and registers interest in
// messages whose leading byte(s) match any of filters (empty = all
// messages). Incoming matches are delivered to handler from a dedicated
// goroutine per subscription.
func (cb *Chatterbox) Subscribe(pubAddr string, filters [][]byte, handler func(msg []byte)) error {
	conn, err := cb.transport.Dial(pubAddr)
	if err != nil {
		return fmt.Errorf("chatterbox: subscribe dial %s: %w", pubAddr, err)
	}
	if err := conn.WriteFrame(encodeSubscribeFrame(filters)); err != nil {
		conn.Close()
		return err
	}
	go func() {
		defer conn.Close()
		for {
			msg, err := conn.ReadFrame()
			if err != nil {
				return
			}
			handler(msg)
		}
	}()
	return nil
}

// Publish fans msg out to every matching subscriber, one write at a time;
// each write blocks until that subscriber's connection accepts the frame,
// so a slow subscriber delays the publisher. A subscriber whose write
// fails is closed and dropped, and msg is not retried for it.
func (cb *Chatterbox) Publish(msg []byte) {
	if len(msg) == 0 {
		return
	}
	lead := msg[0]
	cb.mu.Lock()
	live := cb.subs[:0]
	for _, s := range cb.subs {
		if !s.matches(lead) {
			live = append(live, s)
			continue
		}
		if err := s.conn.WriteFrame(msg); err != nil {
			s.conn.Close()
			continue
		}
		live = append(live, s)
	}
	cb.subs = live
	cb.mu.Unlock()
}

func (s *subscriber) matches(lead byte) bool {
	if len(s.filters) == 0 {
		return true
	}
	for _, f := range s.filters {
		if len(f) == 0 {
			return true
		}
		if f[0] == lead {
			return true
		}
	}
	return false
}

// Request sends req to destAddr's reply socket and returns its one reply,
// using (and returning to) the LRU outbound pool.
func (cb *Chatterbox) Request(destAddr string, req []byte) ([]byte, error) {
	return cb.outbound.request(destAddr, req)
}

// Push sends msg fire-and-forget to destAddr's pull socket: dial, write,
// close, matching the teacher's one-shot net.Dial/Write pattern
// (client.go, utility/util.go's SendWithMarshal) generalized to every
// pull-socket destination instead of one fixed port.
func (cb *Chatterbox) Push(destAddr string, msg []byte) error {
	conn, err := cb.transport.Dial(destAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.WriteFrame(msg)
}

// Close stops every accept loop and closes pooled outbound connections.
func (cb *Chatterbox) Close() {
	cb.mu.Lock()
	cb.stopped = true
	for _, s := range cb.subs {
		s.conn.Close()
	}
	cb.subs = nil
	cb.mu.Unlock()

	if cb.replyLn != nil {
		cb.replyLn.Close()
	}
	if cb.pullLn != nil {
		cb.pullLn.Close()
	}
	if cb.pubLn != nil {
		cb.pubLn.Close()
	}
	cb.outbound.closeAll()
}
