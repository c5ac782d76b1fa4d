// Package fingerprint derives a stable identity for an issuance request so
// that repeated submissions of the same payload can be detected.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Compute hashes the template identity together with a canonical rendering of
// the payload. The payload is round-tripped through an untyped map so that
// key order never affects the digest.
func Compute(templateID string, payload any) (string, error) {
	canonical, err := canonicalJSON(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256([]byte(templateID + ":" + string(canonical)))
	return hex.EncodeToString(sum[:]), nil
}

func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var untyped any
	if err := json.Unmarshal(raw, &untyped); err != nil {
		return nil, err
	}
	// encoding/json emits object keys sorted, making re-marshaled maps canonical.
	return json.Marshal(untyped)
}
