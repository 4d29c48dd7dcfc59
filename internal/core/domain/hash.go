package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// idLength is the number of hex characters of the content hash used as ID.
const idLength = 16

// ContentHash returns the lowercase hex SHA-256 digest of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DocumentID derives the document identifier from a content hash.
// Identical content always resolves to the same ID.
func DocumentID(contentHash string) string {
	if len(contentHash) < idLength {
		return contentHash
	}
	return contentHash[:idLength]
}

// IsContentHash reports whether s looks like a hex SHA-256 digest.
func IsContentHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
