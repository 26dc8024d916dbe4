package ring

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"
)

// HashFunc digests a key into the 64-bit space; the Ring reduces the result
// onto its configured space size.
type HashFunc func(data []byte) uint64

// Sha256 takes the low 64 bits of the SHA-256 digest. For a power-of-two
// ring space this equals reducing the full 256-bit digest, so placements
// match other implementations that compute digest mod 2^n.
func Sha256(data []byte) uint64 {
	sum := sha256.Sum256(data)
	return binary.BigEndian.Uint64(sum[24:])
}

// Murmur3 is a fast non-cryptographic alternative, still run-stable.
func Murmur3(data []byte) uint64 {
	return murmur3.Sum64(data)
}

// HashFuncByName maps a configuration value to a hash function.
func HashFuncByName(name string) (HashFunc, error) {
	switch name {
	case "", "sha256":
		return Sha256, nil
	case "murmur3":
		return Murmur3, nil
	default:
		return nil, fmt.Errorf("unknown hash function: %s", name)
	}
}
