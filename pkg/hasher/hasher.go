package hasher

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns a stable hex digest over the given parts. Managers use it as
// a connection identity: the transport is only torn down and rebuilt when a
// config edit changes something that actually affects the connection.
func Digest(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
