package randutil

import rand "math/rand/v2"

const goldenGamma = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from a 64-bit seed.
// rand/v2's PCG wants two seed words, so the input is expanded with a
// splitmix64 finalizer; the same seed yields the same sequence on every
// platform.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(mix(seed), mix(seed+goldenGamma)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
