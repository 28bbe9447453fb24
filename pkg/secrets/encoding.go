package secrets

import "encoding/base64"

// EncodeBlob renders a sealed envelope as the base64 string form used
// wherever ciphertext crosses a text-only boundary (config seeding,
// admin export).
func EncodeBlob(blob []byte) string {
	return base64.StdEncoding.EncodeToString(blob)
}

// DecodeBlob reverses EncodeBlob.
func DecodeBlob(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
