package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// canonicalJSON renders v as JSON with map keys in sorted order (the
// stdlib encoder already sorts map[string]interface{} keys) so the same
// logical input always serializes to the same bytes regardless of
// construction order.
func canonicalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func hashHex(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0}) // separator so "ab","c" != "a","bc"
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CallKey derives a CallCache key from every dimension that changes the
// answer to an LLM call: agent, model, provider, prompt/schema versions,
// the canonical-JSON of the input, and the tenant. Two calls with the
// same key are guaranteed by the caller to be semantically identical
// requests.
func CallKey(tenantID, agent, model, provider string, promptVersion, schemaVersion int, input interface{}) (string, error) {
	body, err := canonicalJSON(input)
	if err != nil {
		return "", fmt.Errorf("cache: canonicalize call key input: %w", err)
	}
	return hashHex(
		tenantID, agent, model, provider,
		fmt.Sprintf("p%d", promptVersion),
		fmt.Sprintf("s%d", schemaVersion),
		string(body),
	), nil
}

// DerivedKey derives a DerivedCache key from an artifact type (sections,
// entities, relationship_candidates, graph_snapshot) plus the canonical
// content hash of its producing input and versions.
func DerivedKey(tenantID, artifactType string, version int, input interface{}) (string, error) {
	body, err := canonicalJSON(input)
	if err != nil {
		return "", fmt.Errorf("cache: canonicalize derived key input: %w", err)
	}
	return hashHex(tenantID, artifactType, fmt.Sprintf("v%d", version), string(body)), nil
}
