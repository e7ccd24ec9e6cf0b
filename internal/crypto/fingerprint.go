package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintLen is the number of hash bytes kept in a fingerprint.
const fingerprintLen = 10

// Fingerprint returns a short fingerprint of a serialized public key: the
// first 10 bytes of its SHA-256 as hex, in space separated groups of four.
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	h := hex.EncodeToString(sum[:fingerprintLen])

	var b strings.Builder
	for i := 0; i < len(h); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(h[i:min(i+4, len(h))])
	}
	return b.String()
}
