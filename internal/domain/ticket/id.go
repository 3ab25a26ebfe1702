package ticket

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Ticket id prefixes distinguish the ticket families on the wire.
const (
	PrefixTGT = "TGT"
	PrefixST  = "ST"
	PrefixPGT = "PGT"
	PrefixPT  = "PT"
)

const idEntropyBytes = 32

// NewID generates an opaque ticket identifier: a type prefix followed by a
// cryptographically random, collision-resistant suffix. IDs are never
// guessable and never reused.
func NewID(prefix string) string {
	buf := make([]byte, idEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// issuing predictable ticket ids is not an acceptable fallback.
		panic(fmt.Sprintf("ticket id entropy unavailable: %v", err))
	}
	return prefix + "-" + base64.RawURLEncoding.EncodeToString(buf)
}
