package path

import "github.com/zeebo/blake3"

// Hash computes the dot-hash of a path: BLAKE3 over the canonical encoding
// excluding the signature (spec.md §4.1).
func Hash(p Path) (DotHash, error) {
	b, err := EncodeWithoutSig(p)
	if err != nil {
		return DotHash{}, err
	}
	return HashBytes(b), nil
}

// HashBytes hashes arbitrary canonical-encoded bytes (Hash's BLAKE3 step).
func HashBytes(b []byte) DotHash {
	sum := blake3.Sum256(b)
	return DotHash(sum)
}
