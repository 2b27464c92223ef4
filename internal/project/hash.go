package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest - фиксированный 256 битный хеш содержимого входного файла.
type Digest [32]byte

// HashBytes digests raw input bytes.
func HashBytes(data []byte) Digest {
	return sha256.Sum256(data)
}

// Combine builds a derived key: H( content || part1 || part2 ... ).
// Parts must come in a deterministic order.
func Combine(content Digest, parts ...[]byte) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
