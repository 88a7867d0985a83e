package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey joins parts with a NUL separator and returns the hex sha256 digest.
// Used to build fixed-length cache keys that never embed raw tokens.
func HashKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}
