package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sum returns the lowercase hex SHA-256 digest of b. It is the content
// fingerprint used for upload deduplication.
func Sum(b []byte) string {
	digest := sha256.Sum256(b)
	return hex.EncodeToString(digest[:])
}

// SumReader hashes everything readable from r. Useful when the payload is
// streamed rather than buffered.
func SumReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
