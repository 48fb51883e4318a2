package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash fingerprints a document for change detection. The relative path
// is mixed in so identical content at two locations hashes differently, and
// line endings are normalized so CRLF round-trips do not look like edits.
func ContentHash(relPath, content string) string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.TrimRight(normalized, "\n")
	sum := sha256.Sum256([]byte(relPath + "|" + normalized))
	return hex.EncodeToString(sum[:])
}

// RawHash is a plain content fingerprint, used to match the daemon's own
// file writes against later filesystem events.
func RawHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
