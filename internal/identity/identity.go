// Package identity turns a raw caller identifier (session id, user id, JWT
// subject claim) into the opaque hash used wherever callers are compared
// for equality — job ownership, ticket binding, subscription ownership —
// without ever storing or logging the raw identifier itself.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the opaque identity hash for raw, or "" if raw is empty.
// Every component that needs to compare two callers for "same session" or
// "same user" must derive the hash through this function so the same raw
// identifier always produces the same comparable value.
func Hash(raw string) string {
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
