package partition

import "math/rand/v2"

// newRand returns the PRNG used for every shuffle and draw. The stream is
// a pure function of seed so a partition ID always yields the same rows.
func newRand(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}
