// Package xhash is the one pinned hash function every other component
// builds on: the consistent-hash ring, the frequency sketches, and the
// secondary-ring tie-break in edge ownership resolution all call Mix.
//
// The constants are fixed. Changing them reshuffles every ring in a running
// cluster, so Mix's output is locked down by TestMixPinned.
package xhash

// Mix is a 64-bit avalanche mixer (splitmix64's finalizer). It must never
// change: agents compute ring positions independently from the same agent
// id list, and two versions of Mix would disagree on ring order.
func Mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// MixSeeded folds a row/seed index into the mix, used by the sketches to
// derive D independent hash functions from one mixer.
func MixSeeded(x, seed uint64) uint64 {
	return Mix(x ^ (seed*0x9e3779b97f4a7c15 + 0x632be5ab))
}

// Signed64 turns one bit of a mix into a +1/-1 sign, used by Count-Sketch.
func Signed64(x uint64) int32 {
	if Mix(x)&1 == 0 {
		return 1
	}
	return -1
}
