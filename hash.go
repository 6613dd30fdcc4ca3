package flowgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashState returns the SHA-256 digest of the state's canonical JSON
// form. Struct fields marshal in declaration order and encoding/json
// sorts map keys, so the digest is stable across runs for equal values.
func HashState(state WorkflowState) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to serialize state for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashEvent returns the SHA-256 digest of the event's canonical JSON form
func HashEvent(ev StateEvent) (string, error) {
	data, err := MarshalEvent(ev)
	if err != nil {
		return "", fmt.Errorf("failed to serialize event for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
