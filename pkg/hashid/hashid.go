// Package hashid provides the short content digests used for evidence
// hashes, replay hashes and per-record tx references. All of them share
// the same scheme: sha256 over a purpose-prefixed payload, truncated to
// the first 12 hex characters. The prefixes keep otherwise identical
// payloads from colliding across purposes.
package hashid

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// HexLen is the number of hex characters kept from the digest.
	// A compactness trade-off for identifiers, not a security bound.
	HexLen = 12

	PrefixEvidence = "evidence:"
	PrefixReplay   = "replay:"
	PrefixTx       = "tx:"
)

// Short returns the first HexLen hex characters of sha256(s).
func Short(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:HexLen]
}

// Evidence digests an evidence payload.
func Evidence(payload string) string {
	return Short(PrefixEvidence + payload)
}

// Replay digests a replay-summary payload.
func Replay(payload string) string {
	return Short(PrefixReplay + payload)
}

// TxRef digests a per-record reference payload.
func TxRef(payload string) string {
	return Short(PrefixTx + payload)
}
