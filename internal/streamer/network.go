package streamer

import "elga/internal/wireproto"

// RunNetwork serves this streamer's own pull socket, draining batches of
// (u64 src, u64 dst) pairs terminated by a zero sentinel word (§4.7
// "Network" mode). Each received pair is ingested as an insert; callers
// needing deletes should use File mode's signed format instead.
func (s *Streamer) RunNetwork() error {
	return s.Chatter.Serve(nil, s.handleNetworkBatch)
}

func (s *Streamer) handleNetworkBatch(raw []byte) {
	r := wireproto.NewReader(raw)
	for r.Remaining() >= 8 {
		src, err := r.U64()
		if err != nil {
			s.Log.Printf("streamer: malformed network batch: %v", err)
			return
		}
		if src == 0 && r.Remaining() == 0 {
			break
		}
		dst, err := r.U64()
		if err != nil {
			s.Log.Printf("streamer: malformed network batch: %v", err)
			return
		}
		if src == 0 && dst == 0 {
			break
		}
		s.Ingest(wireproto.Edge{Src: src, Dst: dst}, true)
	}
	s.Flush()
}
