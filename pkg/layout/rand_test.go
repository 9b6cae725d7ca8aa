package layout

import "math/rand"

func deterministicRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
