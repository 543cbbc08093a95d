package streamer

import "elga/internal/wireproto"

// GeneratorConfig parametrizes the uniform-random edge generator, §4.7
// "Generator" mode: vertex ids are drawn uniformly from [RangeStart,
// RangeStart+RangeSize), letting several streamer instances partition a
// single synthetic graph across disjoint ranges.
type GeneratorConfig struct {
	RangeStart uint64
	RangeSize  uint64
	NumEdges   int
}

// RunGenerator emits NumEdges uniform-random edges over the configured
// vertex range. rng must return a value in [0, n); callers typically pass
// math/rand.Intn or a seeded source (kept as an injected function since
// §9's determinism/testability concerns apply equally to synthetic load).
func (s *Streamer) RunGenerator(cfg GeneratorConfig, rng func(n int) int) {
	if cfg.RangeSize == 0 {
		return
	}
	for i := 0; i < cfg.NumEdges; i++ {
		src := cfg.RangeStart + uint64(rng(int(cfg.RangeSize)))
		dst := cfg.RangeStart + uint64(rng(int(cfg.RangeSize)))
		if src == dst {
			continue
		}
		s.Ingest(wireproto.Edge{Src: src, Dst: dst}, true)
	}
	s.Flush()
}
