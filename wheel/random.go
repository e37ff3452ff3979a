package wheel

import (
	"crypto/rand"
	"encoding/binary"
)

// Source supplies uniform draws in [0, 1). *math/rand/v2.Rand satisfies it.
type Source interface {
	Float64() float64
}

// CryptoSource draws from crypto/rand (CSPRNG) so outcomes cannot be predicted
// from earlier spins.
type CryptoSource struct{}

func (CryptoSource) Float64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	// 53 random bits, same construction as math/rand.
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}

// intn returns a uniform int in [0, n) from src.
func intn(src Source, n int) int {
	if n <= 1 {
		return 0
	}
	v := int(src.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}
