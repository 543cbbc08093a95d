// Package client implements §4.8: a one-shot issuer of directive messages
// against a directory, plus query/workload modes against agents directly.
package client

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"elga/internal/chatterbox"
	"elga/internal/participant"
	"elga/internal/topk"
	"elga/internal/wireproto"
)

// Client is the thin participant of §4.8: it only ever dials out (no
// reply/pull sockets of its own), mirroring the teacher's client.go
// one-shot dial/write/read pattern generalized across every directive
// kind instead of one fixed master RPC.
type Client struct {
	*participant.Base

	DirectoryEndpoint wireproto.Endpoint
}

func New(self wireproto.Endpoint, transport chatterbox.Transport, cb *chatterbox.Chatterbox, dirEndpoint wireproto.Endpoint, logger *log.Logger) *Client {
	base := participant.NewBase(self, self.Local, wireproto.DefaultPortLayout, transport, logger)
	base.Chatter = cb
	return &Client{Base: base, DirectoryEndpoint: dirEndpoint}
}

func (c *Client) dirPullAddr() string {
	return wireproto.ResolveAddr(c.Self.IPv4, c.DirectoryEndpoint.IPv4, c.DirectoryEndpoint.Local, wireproto.Pull, c.Layout)
}

func (c *Client) dirPubAddr() string {
	return wireproto.ResolveAddr(c.Self.IPv4, c.DirectoryEndpoint.IPv4, c.DirectoryEndpoint.Local, wireproto.Publish, c.Layout)
}

func (c *Client) agentAddr(serial uint64, class wireproto.SocketClass) string {
	ep := wireproto.EndpointFromSerial(serial)
	return wireproto.ResolveAddr(c.Self.IPv4, ep.IPv4, ep.Local, class, c.Layout)
}

// LearnAgents subscribes briefly to the directory's DIRECTORY_UPDATE
// broadcasts so query_vertex's find_agent resolution has a ring to
// resolve against; it blocks until at least one update arrives or
// timeout elapses.
func (c *Client) LearnAgents(timeout time.Duration) error {
	done := make(chan struct{}, 1)
	err := c.Chatter.Subscribe(c.dirPubAddr(), [][]byte{{byte(wireproto.KindDirectoryUpdate)}}, func(raw []byte) {
		msg, err := wireproto.UnpackMessage(raw)
		if err != nil {
			return
		}
		d, err := wireproto.UnpackDirectoryUpdate(wireproto.NewReader(msg.Body), 0)
		if err != nil {
			return
		}
		c.UpdateAgents(d.Agents)
		select {
		case done <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("client: no DIRECTORY_UPDATE within %s", timeout)
	}
}

// Query is §4.8's query(msg_type): send one client-directive message to
// the directory master/directory's pull-equivalent entry point and, for
// the acking kinds, nothing further -- directives are fire-and-forget
// from the client's perspective, acked only by virtue of the directory's
// rebroadcast (observable via LearnAgents/subsequent state, not a direct
// reply).
func (c *Client) Query(kind wireproto.Kind, body []byte) error {
	return c.Chatter.Push(c.dirPullAddr(), wireproto.Message{Kind: kind, Body: body}.Pack())
}

// QueryVertex resolves v's current reader via find_agent(edge(v,-1), OUT,
// find_owner=false) and sends it a QUERY(v), returning the algorithm-
// defined response bytes (§4.8).
func (c *Client) QueryVertex(v uint64) ([]byte, error) {
	edge := wireproto.Edge{Src: v, Dst: ^uint64(0)}
	owner, _ := c.FindAgent(edge, wireproto.Out, false, 0, false)

	w := wireproto.NewWriter(8)
	wireproto.PackQuery(w, v)
	return c.Chatter.Request(c.agentAddr(owner, wireproto.Request), wireproto.Message{Kind: wireproto.KindQuery, Body: w.Bytes()}.Pack())
}

// WorkloadConfig drives repeated random-vertex queries at a paced rate
// (§4.8 "Workload mode").
type WorkloadConfig struct {
	VertexRangeSize uint64
	NumQueries      int
	Rate            time.Duration // minimum spacing between queries; 0 = unpaced
	TopK            int
	// Score turns a raw QUERY response into a scalar for top-K ranking;
	// callers typically pass the selected algorithm's own decode (e.g.
	// PageRank's rank as a float64), since QUERY's reply bytes are
	// algorithm-defined (§9).
	Score func(resp []byte) float64
}

// RunWorkload repeats random-vertex queries per cfg, keeping the top-K
// highest-scoring responses (grounded on master.go's getAllResults /
// utility/priorityqueue -- see internal/topk).
func (c *Client) RunWorkload(cfg WorkloadConfig) *topk.TopK {
	results := topk.New(cfg.TopK)
	if cfg.VertexRangeSize == 0 {
		return results
	}

	var lastSent time.Time
	for i := 0; i < cfg.NumQueries; i++ {
		if cfg.Rate > 0 {
			if wait := cfg.Rate - time.Since(lastSent); wait > 0 {
				time.Sleep(wait)
			}
			lastSent = time.Now()
		}

		v := uint64(rand.Int63n(int64(cfg.VertexRangeSize)))
		resp, err := c.QueryVertex(v)
		if err != nil {
			c.Log.Printf("workload: query vertex %d failed: %v", v, err)
			continue
		}
		score := 0.0
		if cfg.Score != nil {
			score = cfg.Score(resp)
		}
		results.Push(topk.Result{Vertex: v, Score: score})
	}
	return results
}
