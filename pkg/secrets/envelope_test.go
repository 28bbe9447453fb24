package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	sealer, err := NewSealer([]byte("master-passphrase-for-tests"))
	require.NoError(t, err)

	plaintext := []byte("sk-ant-test-key-0123456789")
	blob, err := sealer.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
	assert.NotContains(t, string(blob), "sk-ant")

	got, err := sealer.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSealProducesDistinctBlobsForSamePlaintext(t *testing.T) {
	sealer, err := NewSealer([]byte("master-passphrase-for-tests"))
	require.NoError(t, err)

	blobA, err := sealer.Seal([]byte("same-secret"))
	require.NoError(t, err)
	blobB, err := sealer.Seal([]byte("same-secret"))
	require.NoError(t, err)

	assert.NotEqual(t, blobA, blobB, "random salt+nonce must vary per call")
}

func TestOpenRejectsWrongMasterKey(t *testing.T) {
	sealerA, err := NewSealer([]byte("key-a"))
	require.NoError(t, err)
	sealerB, err := NewSealer([]byte("key-b"))
	require.NoError(t, err)

	blob, err := sealerA.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = sealerB.Open(blob)
	assert.Error(t, err)
}

func TestOpenRejectsTruncatedEnvelope(t *testing.T) {
	sealer, err := NewSealer([]byte("master"))
	require.NoError(t, err)

	_, err = sealer.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrEnvelopeTooShort)
}

func TestEncodeDecodeBlobRoundTrip(t *testing.T) {
	sealer, err := NewSealer([]byte("master"))
	require.NoError(t, err)

	blob, err := sealer.Seal([]byte("roundtrip"))
	require.NoError(t, err)

	encoded := EncodeBlob(blob)
	decoded, err := DecodeBlob(encoded)
	require.NoError(t, err)
	assert.Equal(t, blob, decoded)
}
