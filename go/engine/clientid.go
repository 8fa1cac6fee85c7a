package engine

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// randomClientID returns a random 21-character URL-safe identifier, used
// by New whenever a caller doesn't supply a stable Config.ClientID of its
// own. 16 random bytes (a v4 UUID's payload) base64url-encode to 22
// characters with no padding; trimming to 21 keeps the id a fixed,
// predictable length.
func randomClientID() string {
	id := uuid.New()
	encoded := base64.RawURLEncoding.EncodeToString(id[:])
	if len(encoded) > 21 {
		encoded = encoded[:21]
	}
	return encoded
}
