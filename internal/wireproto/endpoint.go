package wireproto

// Endpoint is (ipv4, local) packed as a single u64 (§3): local occupies the
// high bits, ipv4 the low 32. Endpoints compare by equal Serial().
type Endpoint struct {
	IPv4  uint32
	Local uint16
}

// serialMask49 is the low-49-bit mask a VAgentID packs its endpoint into;
// an Endpoint (32+16=48 bits) always fits under it with room to spare.
const serialMask49 = (uint64(1) << 49) - 1

// Serial packs the endpoint into a u64.
func (e Endpoint) Serial() uint64 {
	return (uint64(e.Local) << 32) | uint64(e.IPv4)
}

// EndpointFromSerial is Serial's inverse.
func EndpointFromSerial(s uint64) Endpoint {
	return Endpoint{IPv4: uint32(s), Local: uint16(s >> 32)}
}

// IsZero reports whether the endpoint is the zero endpoint (zero IPv4),
// per §3's definition.
func (e Endpoint) IsZero() bool { return e.IPv4 == 0 }

// VAgentID is (endpoint, vagent) packed into a u64: low 49 bits endpoint,
// high 15 bits vagent index (§3).
type VAgentID struct {
	Endpoint Endpoint
	VAgent   uint16
}

func (v VAgentID) Pack() uint64 {
	return (v.Endpoint.Serial() & serialMask49) | (uint64(v.VAgent) << 49)
}

func VAgentFromPacked(p uint64) VAgentID {
	return VAgentID{
		Endpoint: EndpointFromSerial(p & serialMask49),
		VAgent:   uint16(p >> 49),
	}
}

// StripVAgent returns just the endpoint serial, discarding the vagent
// suffix -- used wherever find_agent's return_va=false (§4.3).
func StripVAgent(packed uint64) uint64 {
	return packed & serialMask49
}

// PackEndpoint/UnpackEndpoint write/read the 8-byte wire form used by
// DIRECTORY_JOIN/LEAVE and GET_DIRECTORY(reply) (§6).
func PackEndpoint(w *Writer, e Endpoint) { w.PutU64(e.Serial()) }

func UnpackEndpoint(r *Reader) (Endpoint, error) {
	v, err := r.U64()
	if err != nil {
		return Endpoint{}, err
	}
	return EndpointFromSerial(v), nil
}
