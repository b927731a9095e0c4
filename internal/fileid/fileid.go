// Package fileid derives deterministic document ids from file paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

const prefix = "file_"

// hashLen is the number of hex characters of the path hash kept in the id.
const hashLen = 32

// FileDocID returns a stable document ID for the given absolute path.
// Re-ingesting the same path overwrites the same document.
func FileDocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])[:hashLen]
}

// ForPath resolves path to an absolute path and returns its document ID.
func ForPath(path string) (id, absolutePath string, err error) {
	absolutePath, err = filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return FileDocID(absolutePath), absolutePath, nil
}
