package sampler

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
)

// randSource is the minimal surface the selection algorithm needs, letting
// WithSeed swap in a deterministic generator without the rest of the
// package depending on a concrete rand type.
type randSource interface {
	IntN(n int) int
}

func newPCGSource(seed int64) randSource {
	return mathrand.New(mathrand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

// newCryptoSource seeds math/rand/v2's PCG from crypto/rand so the default,
// unseeded path is non-reproducible without pulling in a process-global
// singleton (spec.md §9: "treat it as a lazily-initialised resource, not a
// module-level singleton").
func newCryptoSource() randSource {
	var seedBytes [16]byte
	if _, err := rand.Read(seedBytes[:]); err != nil {
		// crypto/rand failing is catastrophic for the whole process; fall
		// back to a fixed seed rather than panic inside a library call.
		return mathrand.New(mathrand.NewPCG(1, 1))
	}
	hi := binary.LittleEndian.Uint64(seedBytes[:8])
	lo := binary.LittleEndian.Uint64(seedBytes[8:])
	return mathrand.New(mathrand.NewPCG(hi, lo))
}
