package algorithm

import "encoding/binary"

// le64/leU64 convert the fixed 8-byte payloads every built-in algorithm
// uses for its numeric LocalStorage/VertexNotification/ReplicaLocalStorage
// shapes (§9 -- "fixed-size payload types").
func le64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func leU64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}
