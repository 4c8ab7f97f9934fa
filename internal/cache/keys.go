package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// AnalysisKey returns the cache key for the analysis of a document with the
// given content digest. scope identifies the analyzer and its model.
func AnalysisKey(scope, digest string) string {
	return fmt.Sprintf("analysis:%s:%s", scope, digest)
}

// DocumentDigest returns the hex SHA-256 of document.
func DocumentDigest(document []byte) string {
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}
