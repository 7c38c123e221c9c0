package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// ChunkID derives the identity of the chunk at position within source.
// Only the path is hashed, so re-ingesting an edited file overwrites its
// chunks position by position instead of duplicating them.
func ChunkID(source string, position int) string {
	return SourceHash(source) + "_" + strconv.Itoa(position)
}

// SourceHash returns the hex-encoded SHA-256 of a source path
func SourceHash(source string) string {
	h := sha256.Sum256([]byte(source))
	return hex.EncodeToString(h[:])
}
