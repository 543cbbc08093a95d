package chatterbox

import (
	"container/list"
	"fmt"
	"sync"
)

// outboundPool is the bounded LRU of outbound request sockets (§5/§9):
// a map destAddr -> Conn with move-to-front on touch; the least-recently
// used connection is closed on eviction. One request at a time flows over
// a pooled connection (agents are single-threaded per §5), so no
// per-connection locking beyond what protects the pool's own bookkeeping.
type outboundPool struct {
	transport Transport
	limit     int

	mu      sync.Mutex
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

type poolEntry struct {
	addr string
	conn Conn
}

func newOutboundPool(transport Transport, limit int) *outboundPool {
	if limit <= 0 {
		limit = 1
	}
	return &outboundPool{
		transport: transport,
		limit:     limit,
		order:     list.New(),
		entries:   make(map[string]*list.Element),
	}
}

func (p *outboundPool) request(addr string, req []byte) ([]byte, error) {
	conn, err := p.acquire(addr)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteFrame(req); err != nil {
		p.evict(addr)
		return nil, fmt.Errorf("chatterbox: request write to %s: %w", addr, err)
	}
	resp, err := conn.ReadFrame()
	if err != nil {
		p.evict(addr)
		return nil, fmt.Errorf("chatterbox: request read from %s: %w", addr, err)
	}
	p.touch(addr)
	return resp, nil
}

func (p *outboundPool) acquire(addr string) (Conn, error) {
	p.mu.Lock()
	if el, ok := p.entries[addr]; ok {
		p.order.MoveToFront(el)
		conn := el.Value.(*poolEntry).conn
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	conn, err := p.transport.Dial(addr)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.entries[addr]; ok {
		// lost a race with a concurrent acquire for the same addr
		conn.Close()
		p.order.MoveToFront(el)
		return el.Value.(*poolEntry).conn, nil
	}
	el := p.order.PushFront(&poolEntry{addr: addr, conn: conn})
	p.entries[addr] = el
	p.evictOverLimitLocked()
	return conn, nil
}

func (p *outboundPool) touch(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.entries[addr]; ok {
		p.order.MoveToFront(el)
	}
}

func (p *outboundPool) evict(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.entries[addr]; ok {
		el.Value.(*poolEntry).conn.Close()
		p.order.Remove(el)
		delete(p.entries, addr)
	}
}

func (p *outboundPool) evictOverLimitLocked() {
	for p.order.Len() > p.limit {
		back := p.order.Back()
		if back == nil {
			return
		}
		e := back.Value.(*poolEntry)
		e.conn.Close()
		p.order.Remove(back)
		delete(p.entries, e.addr)
	}
}

func (p *outboundPool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for el := p.order.Front(); el != nil; el = el.Next() {
		el.Value.(*poolEntry).conn.Close()
	}
	p.order.Init()
	p.entries = make(map[string]*list.Element)
}
