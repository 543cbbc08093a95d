package streamer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"elga/internal/wireproto"
)

// RunFile reads "+/-1 src dst weight ts" lines from r, one edge delta per
// line (weight/ts are accepted and ignored -- ElGA's wire Update carries
// no payload beyond the edge itself), and ingests each (§4.7 "File" mode).
func (s *Streamer) RunFile(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return fmt.Errorf("streamer: malformed line %q", line)
		}
		sign, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("streamer: malformed sign in %q: %w", line, err)
		}
		src, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("streamer: malformed src in %q: %w", line, err)
		}
		dst, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return fmt.Errorf("streamer: malformed dst in %q: %w", line, err)
		}
		s.Ingest(wireproto.Edge{Src: src, Dst: dst}, sign >= 0)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("streamer: reading file: %w", err)
	}
	s.Flush()
	return nil
}
