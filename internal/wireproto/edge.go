package wireproto

// Direction labels which side of an edge is under discussion while it is
// in motion (§3); local storage keeps both neighbor lists regardless.
type Direction uint32

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "IN"
	}
	return "OUT"
}

// Flip returns the opposite direction, used by send_out_edges/
// finalize_graph_batch to synthesize the symmetric edge (§4.6.2/§4.6.3).
func (d Direction) Flip() Direction {
	if d == In {
		return Out
	}
	return In
}

// Edge is the undirected pair of vertex ids an Update carries.
type Edge struct {
	Src uint64
	Dst uint64
}

// Primary returns the vertex that "owns" this edge under direction: Src if
// direction is OUT, Dst if IN (§4.3).
func (e Edge) Primary(dir Direction) uint64 {
	if dir == Out {
		return e.Src
	}
	return e.Dst
}

// Secondary is the other vertex.
func (e Edge) Secondary(dir Direction) uint64 {
	if dir == Out {
		return e.Dst
	}
	return e.Src
}

// Update is the unit of change flowing through the system: an edge, the
// direction label it arrived under, and whether it's an insert or delete.
// Equal updates are idempotent under set semantics (§3).
type Update struct {
	Edge      Edge
	Direction Direction
	Insert    bool
}

func PackEdge(w *Writer, e Edge) {
	w.PutU64(e.Src)
	w.PutU64(e.Dst)
}

func UnpackEdge(r *Reader) (Edge, error) {
	src, err := r.U64()
	if err != nil {
		return Edge{}, err
	}
	dst, err := r.U64()
	if err != nil {
		return Edge{}, err
	}
	return Edge{Src: src, Dst: dst}, nil
}

// PackUpdate writes the wire update = (src:u64, dst:u64, direction:u32,
// insert:u32) per §6.
func PackUpdate(w *Writer, u Update) {
	PackEdge(w, u.Edge)
	w.PutU32(uint32(u.Direction))
	if u.Insert {
		w.PutU32(1)
	} else {
		w.PutU32(0)
	}
}

func UnpackUpdate(r *Reader) (Update, error) {
	e, err := UnpackEdge(r)
	if err != nil {
		return Update{}, err
	}
	dir, err := r.U32()
	if err != nil {
		return Update{}, err
	}
	ins, err := r.U32()
	if err != nil {
		return Update{}, err
	}
	return Update{Edge: e, Direction: Direction(dir), Insert: ins != 0}, nil
}

const updateWireSize = 8 + 8 + 4 + 4

// PackUpdates/UnpackUpdates handle the update[] trailing arrays that
// appear in UPDATE_EDGES, SEND_UPDATES, etc. Unpack reads until the
// reader is exhausted, since these arrays are never length-prefixed on
// the wire (the surrounding message framing supplies the total length).
func PackUpdates(w *Writer, us []Update) {
	for _, u := range us {
		PackUpdate(w, u)
	}
}

func UnpackUpdates(r *Reader) ([]Update, error) {
	n := r.Remaining() / updateWireSize
	out := make([]Update, 0, n)
	for !r.AtEnd() {
		u, err := UnpackUpdate(r)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
