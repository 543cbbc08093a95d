package wireproto

import (
	"fmt"
	"strconv"
	"strings"
)

// PortLayout is the §6 TCP port layout: request socket at StartPort+local,
// publish socket at StartPort+local+PubOffset, pull socket at
// StartPort+local+PullOffset.
type PortLayout struct {
	StartPort  int
	PubOffset  int
	PullOffset int
}

// DefaultPortLayout matches the reference constants: request sockets start
// at 17200 (so host "1.2.3.4" local 15 resolves to tcp://1.2.3.4:17215, the
// §8 scenario 5 worked example).
var DefaultPortLayout = PortLayout{StartPort: 17200, PubOffset: 10000, PullOffset: 20000}

// ParseIPv4 parses a dotted IPv4 literal the way BSD inet_aton does: 1-4
// dot-separated fields, each decimal/octal/hex (strconv base-0 rules), with
// the last field absorbing whatever bits the earlier fields didn't claim.
// This lets "10.0xff" mean 10.0.0.255, matching §8 scenario 5.
func ParseIPv4(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) == 0 || len(parts) > 4 {
		return 0, fmt.Errorf("wireproto: invalid IPv4 literal %q", s)
	}
	vals := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("wireproto: invalid IPv4 field %q in %q: %w", p, s, err)
		}
		vals[i] = v
	}
	var out uint32
	switch len(vals) {
	case 1:
		out = uint32(vals[0])
	case 2:
		out = uint32(vals[0])<<24 | uint32(vals[1])&0x00ffffff
	case 3:
		out = uint32(vals[0])<<24 | uint32(vals[1])<<16 | uint32(vals[2])&0x0000ffff
	case 4:
		out = uint32(vals[0])<<24 | uint32(vals[1])<<16 | uint32(vals[2])<<8 | uint32(vals[3])
	}
	return out, nil
}

// FormatIPv4 renders the canonical dotted-quad form.
func FormatIPv4(ip uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
}

// SocketClass selects which of the three conceptual sockets (§2 Messaging
// chatterbox) an address string names.
type SocketClass int

const (
	Request SocketClass = iota
	Publish
	Pull
)

func (c SocketClass) offset(layout PortLayout) int {
	switch c {
	case Publish:
		return layout.PubOffset
	case Pull:
		return layout.PullOffset
	default:
		return 0
	}
}

// RemoteAddr returns the TCP transport string for (ip, local, class), e.g.
// "tcp://1.2.3.4:17215" for the request socket of local=15 under the
// default port layout.
func RemoteAddr(ip uint32, local uint16, class SocketClass, layout PortLayout) string {
	port := layout.StartPort + int(local) + class.offset(layout)
	return fmt.Sprintf("tcp://%s:%d", FormatIPv4(ip), port)
}

// LocalAddr returns the in-process transport string for same-host peers:
// "inproc://<local>". Sockets of different classes on the same local index
// still need their own inproc channel, so the class is folded into the
// name for Publish/Pull to avoid cross-talk between a reply and a publish
// socket that happen to share a local index.
func LocalAddr(local uint16, class SocketClass) string {
	switch class {
	case Publish:
		return fmt.Sprintf("inproc://%d.pub", local)
	case Pull:
		return fmt.Sprintf("inproc://%d.pull", local)
	default:
		return fmt.Sprintf("inproc://%d", local)
	}
}

// ResolveAddr picks the local or remote transport string depending on
// whether ip matches the process's own address -- same-host peers get the
// in-process string, cross-host peers the TCP string (§8 "Address
// equivalence").
func ResolveAddr(selfIP uint32, ip uint32, local uint16, class SocketClass, layout PortLayout) string {
	if ip == selfIP {
		return LocalAddr(local, class)
	}
	return RemoteAddr(ip, local, class, layout)
}
