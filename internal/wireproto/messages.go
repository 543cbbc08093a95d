package wireproto

// This file packs/unpacks the body of every message kind listed in §6
// beyond the bare Edge/Update shapes in edge.go.

// ---- GET_DIRECTORIES / AGENT_JOIN / AGENT_LEAVE: packed u64 lists ----

// PackU64List writes a bare sequence of u64 values (no length prefix --
// the frame length supplies it, same convention as update arrays).
func PackU64List(w *Writer, vs []uint64) {
	for _, v := range vs {
		w.PutU64(v)
	}
}

func UnpackU64List(r *Reader) ([]uint64, error) {
	n := r.Remaining() / 8
	out := make([]uint64, 0, n)
	for !r.AtEnd() {
		v, err := r.U64()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ---- GET_DIRECTORY reply: one u64, or empty ----

func PackOptionalSerial(w *Writer, present bool, serial uint64) {
	if present {
		w.PutU64(serial)
	}
}

func UnpackOptionalSerial(r *Reader) (serial uint64, present bool, err error) {
	if r.Remaining() == 0 {
		return 0, false, nil
	}
	v, err := r.U64()
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// ---- DIRECTORY_UPDATE: u8 changed, u64[] agents(endpoint|vagent_count<<49), optional sketch blob ----

type DirectoryUpdate struct {
	Changed bool
	Agents  []uint64 // packed endpoint | (vagent_count << 49), see VAgentID
	Sketch  []byte   // nil if the frequency-sketch subsystem is disabled
}

func PackDirectoryUpdate(w *Writer, d DirectoryUpdate) {
	w.PutBool(d.Changed)
	PackU64List(w, d.Agents)
}

// UnpackDirectoryUpdate needs the expected sketch size out of band (it's
// cluster configuration, not self-describing on the wire) to split the
// agent list from the trailing sketch blob. Pass 0 if sketches are
// disabled.
func UnpackDirectoryUpdate(r *Reader, sketchSize int) (DirectoryUpdate, error) {
	changed, err := r.Bool()
	if err != nil {
		return DirectoryUpdate{}, err
	}
	agentBytes := r.Remaining() - sketchSize
	if agentBytes < 0 || agentBytes%8 != 0 {
		return DirectoryUpdate{}, errShortFrame
	}
	agents := make([]uint64, agentBytes/8)
	for i := range agents {
		v, err := r.U64()
		if err != nil {
			return DirectoryUpdate{}, err
		}
		agents[i] = v
	}
	var sketchBlob []byte
	if sketchSize > 0 {
		sketchBlob, err = r.Bytes(sketchSize)
		if err != nil {
			return DirectoryUpdate{}, err
		}
	}
	return DirectoryUpdate{Changed: changed, Agents: agents, Sketch: sketchBlob}, nil
}

// ---- SEND_UPDATES: u8 flag, u64 from_endpoint, update[] ----

type SendUpdatesFlag uint8

const (
	FlagEdgeMove       SendUpdatesFlag = 0x0
	FlagOutSymmetric   SendUpdatesFlag = 0x1
	FlagTransposeCheck SendUpdatesFlag = 0x2
)

type SendUpdates struct {
	Flag    SendUpdatesFlag
	From    Endpoint
	Updates []Update
}

func PackSendUpdates(w *Writer, m SendUpdates) {
	w.PutU8(uint8(m.Flag))
	PackEndpoint(w, m.From)
	PackUpdates(w, m.Updates)
}

func UnpackSendUpdates(r *Reader) (SendUpdates, error) {
	flag, err := r.U8()
	if err != nil {
		return SendUpdates{}, err
	}
	from, err := UnpackEndpoint(r)
	if err != nil {
		return SendUpdates{}, err
	}
	ups, err := UnpackUpdates(r)
	if err != nil {
		return SendUpdates{}, err
	}
	return SendUpdates{Flag: SendUpdatesFlag(flag), From: from, Updates: ups}, nil
}

// ---- NV: u64 nV, u64 nE ----

type NV struct {
	NumVertices uint64
	NumEdges    uint64
}

func PackNV(w *Writer, m NV) {
	w.PutU64(m.NumVertices)
	w.PutU64(m.NumEdges)
}

func UnpackNV(r *Reader) (NV, error) {
	nv, err := r.U64()
	if err != nil {
		return NV{}, err
	}
	ne, err := r.U64()
	if err != nil {
		return NV{}, err
	}
	return NV{NumVertices: nv, NumEdges: ne}, nil
}

// ---- READY_NV_NE[_INT]: f64 deltaNV, i64 deltaNE ----

type ReadyNVNE struct {
	DeltaNV float64
	DeltaNE int64
}

func PackReadyNVNE(w *Writer, m ReadyNVNE) {
	w.PutF64(m.DeltaNV)
	w.PutI64(m.DeltaNE)
}

func UnpackReadyNVNE(r *Reader) (ReadyNVNE, error) {
	dnv, err := r.F64()
	if err != nil {
		return ReadyNVNE{}, err
	}
	dne, err := r.I64()
	if err != nil {
		return ReadyNVNE{}, err
	}
	return ReadyNVNE{DeltaNV: dnv, DeltaNE: dne}, nil
}

// ---- READY_SYNC: u64 dormant; READY_SYNC_INT appends (i32 it, u32 batch) ----

type ReadySync struct {
	Dormant uint64
	// Internal carries (Iteration, Batch); only meaningful when this
	// value arrived/is sent as KindReadySyncInt.
	Internal  bool
	Iteration int32
	Batch     uint32
}

func PackReadySync(w *Writer, m ReadySync) {
	w.PutU64(m.Dormant)
	if m.Internal {
		w.PutI32(m.Iteration)
		w.PutU32(m.Batch)
	}
}

func UnpackReadySync(r *Reader, internal bool) (ReadySync, error) {
	dormant, err := r.U64()
	if err != nil {
		return ReadySync{}, err
	}
	out := ReadySync{Dormant: dormant, Internal: internal}
	if internal {
		it, err := r.I32()
		if err != nil {
			return ReadySync{}, err
		}
		batch, err := r.U32()
		if err != nil {
			return ReadySync{}, err
		}
		out.Iteration = it
		out.Batch = batch
	}
	return out, nil
}

// ---- SYNC: u64 dormant_sum ----

func PackSync(w *Writer, dormantSum uint64) { w.PutU64(dormantSum) }

func UnpackSync(r *Reader) (uint64, error) { return r.U64() }

// ---- HAVE_UPDATE: u32 batch ----

func PackHaveUpdate(w *Writer, batch uint32) { w.PutU32(batch) }

func UnpackHaveUpdate(r *Reader) (uint32, error) { return r.U32() }

// ---- RV: u64 from_endpoint, then (i32 it, u64 v, ReplicaLocalStorage)[] ----

// ReplicaContribution is one (iteration, vertex, opaque replica payload)
// triple from the RV message. ReplicaLocalStorage's shape is
// algorithm-defined (§4.6.5); it is carried as an opaque fixed-size blob
// whose length the algorithm plugin reports via ReplicaSize (see
// algorithm.Hooks).
type ReplicaContribution struct {
	Iteration int32
	Vertex    uint64
	Payload   []byte
}

type RV struct {
	From      Endpoint
	Contribs  []ReplicaContribution
}

// PackRV writes each contribution's payload as is. UnpackRV's payloadSize
// is the fixed per-contribution payload length; callers pass the
// algorithm's ReplicaLocalStorage size.
func PackRV(w *Writer, m RV) {
	PackEndpoint(w, m.From)
	for _, c := range m.Contribs {
		w.PutI32(c.Iteration)
		w.PutU64(c.Vertex)
		w.PutBytes(c.Payload)
	}
}

func UnpackRV(r *Reader, payloadSize int) (RV, error) {
	from, err := UnpackEndpoint(r)
	if err != nil {
		return RV{}, err
	}
	stride := 4 + 8 + payloadSize
	n := r.Remaining() / stride
	contribs := make([]ReplicaContribution, 0, n)
	for !r.AtEnd() {
		it, err := r.I32()
		if err != nil {
			return RV{}, err
		}
		v, err := r.U64()
		if err != nil {
			return RV{}, err
		}
		payload, err := r.Bytes(payloadSize)
		if err != nil {
			return RV{}, err
		}
		contribs = append(contribs, ReplicaContribution{Iteration: it, Vertex: v, Payload: payload})
	}
	return RV{From: from, Contribs: contribs}, nil
}

// ---- OUT_VN: optional i32 iteration, then VertexNotification[] (opaque, algorithm-defined) ----

type VertexNotification struct {
	Vertex  uint64
	Payload []byte
}

type OutVN struct {
	HasIteration bool
	Iteration    int32
	Notifications []VertexNotification
}

func PackOutVN(w *Writer, m OutVN) {
	if m.HasIteration {
		w.PutI32(m.Iteration)
	}
	for _, n := range m.Notifications {
		w.PutU64(n.Vertex)
		w.PutBytes(n.Payload)
	}
}

func UnpackOutVN(r *Reader, hasIteration bool, payloadSize int) (OutVN, error) {
	out := OutVN{HasIteration: hasIteration}
	if hasIteration {
		it, err := r.I32()
		if err != nil {
			return OutVN{}, err
		}
		out.Iteration = it
	}
	stride := 8 + payloadSize
	n := r.Remaining() / stride
	out.Notifications = make([]VertexNotification, 0, n)
	for !r.AtEnd() {
		v, err := r.U64()
		if err != nil {
			return OutVN{}, err
		}
		payload, err := r.Bytes(payloadSize)
		if err != nil {
			return OutVN{}, err
		}
		out.Notifications = append(out.Notifications, VertexNotification{Vertex: v, Payload: payload})
	}
	return out, nil
}

// ---- QUERY: u64 vertex_id; reply is algorithm-defined bytes (opaque here) ----

func PackQuery(w *Writer, vertex uint64) { w.PutU64(vertex) }

func UnpackQuery(r *Reader) (uint64, error) { return r.U64() }
