// internal/utils/crypto.go
package utils

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashBlake2b returns the hex BLAKE2b-256 digest of the concatenated parts.
func HashBlake2b(parts ...[]byte) string {
	// New256 only fails for keys longer than 64 bytes.
	hasher, _ := blake2b.New256(nil)
	for _, part := range parts {
		hasher.Write(part)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

func ValidateHash(expectedHash string, parts ...[]byte) bool {
	return HashBlake2b(parts...) == expectedHash
}
