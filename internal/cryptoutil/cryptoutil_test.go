package cryptoutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte("k"), 32)
}

func TestNewAESGCMEncryptorRequires32ByteKey(t *testing.T) {
	_, err := NewAESGCMEncryptor([]byte("short"))
	require.Error(t, err)

	_, err = NewAESGCMEncryptor(testKey())
	require.NoError(t, err)
}

func TestAESGCMRoundTrip(t *testing.T) {
	e, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)

	sealed, err := e.Encrypt([]byte(`{"id":"TGT-1"}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "v1:"))
	assert.NotContains(t, sealed, "TGT-1")

	opened, err := e.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"TGT-1"}`), opened)

	// Nonces are random; two seals of the same plaintext differ.
	sealed2, err := e.Encrypt([]byte(`{"id":"TGT-1"}`))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, sealed2)
}

func TestAESGCMRejectsTamperedPayload(t *testing.T) {
	e, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)

	sealed, err := e.Encrypt([]byte("payload"))
	require.NoError(t, err)

	_, err = e.Decrypt(sealed[:len(sealed)-4] + "AAAA")
	require.Error(t, err)

	_, err = e.Decrypt("v2:whatever")
	require.Error(t, err)

	_, err = e.Decrypt("v1:AA")
	require.Error(t, err)
}

func TestAESGCMAcceptsPlainPayloads(t *testing.T) {
	// Enabling encryption on a registry with existing plain payloads must
	// keep those payloads readable.
	plain, err := PlainEncryptor{}.Encrypt([]byte("legacy"))
	require.NoError(t, err)

	e, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)
	opened, err := e.Decrypt(plain)
	require.NoError(t, err)
	assert.Equal(t, []byte("legacy"), opened)
}

func TestPlainEncryptorRoundTrip(t *testing.T) {
	sealed, err := PlainEncryptor{}.Encrypt([]byte("payload"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "plain:"))

	opened, err := PlainEncryptor{}.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), opened)

	_, err = PlainEncryptor{}.Decrypt("v1:something")
	require.Error(t, err)
}
