package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns a stable hex digest of text, used as a cache key
// for embeddings and as a deduplication fingerprint for uploads.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
