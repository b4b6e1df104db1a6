package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSharedSymmetric(t *testing.T) {
	a, err := GenerateKeyPair()
	require.NoError(t, err)
	b, err := GenerateKeyPair()
	require.NoError(t, err)

	sa, err := a.DeriveShared(b.PublicKeyBytes())
	require.NoError(t, err)
	sb, err := b.DeriveShared(a.PublicKeyBytes())
	require.NoError(t, err)

	assert.Equal(t, sa, sb)
}

func TestDeriveSharedRejectsBadPeerKey(t *testing.T) {
	a, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = a.DeriveShared([]byte{0x00, 0x01, 0x02})
	assert.True(t, Is(err, ErrBadPeerKey))

	badPrefix := make([]byte, 65)
	badPrefix[0] = 0x02
	_, err = a.DeriveShared(badPrefix)
	assert.True(t, Is(err, ErrBadPeerKey))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	plaintext := []byte("wifi-password-or-any-sensitive-field")

	blob, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	assert.Equal(t, FrameVersion, blob[0])

	got, err := Decrypt(blob, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	key := make([]byte, 32)
	other := make([]byte, 32)
	other[0] = 0xFF

	blob, err := Encrypt([]byte("hello"), key)
	require.NoError(t, err)

	_, err = Decrypt(blob, other)
	assert.True(t, Is(err, ErrAuthFail))
}

func TestDecryptRejectsBadVersion(t *testing.T) {
	key := make([]byte, 32)
	blob, err := Encrypt([]byte("hello"), key)
	require.NoError(t, err)

	blob[0] = 0x02
	_, err = Decrypt(blob, key)
	assert.True(t, Is(err, ErrBadVersion))
}

func TestHKDFSHA256Deterministic(t *testing.T) {
	ikm := []byte("shared-secret-material")
	salt := make([]byte, 32)
	info := []byte("daydreamcamera-pairing-v1")

	k1, err := HKDFSHA256(ikm, salt, info)
	require.NoError(t, err)
	k2, err := HKDFSHA256(ikm, salt, info)
	require.NoError(t, err)

	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
}

func TestHMACSHA256ConcatenatesParts(t *testing.T) {
	key := []byte("key")
	a := HMACSHA256(key, []byte("POST"), []byte("/daydreamcamera"), []byte("body"))
	b := HMACSHA256(key, []byte("POST/daydreamcamera"+"body"))
	assert.Equal(t, b, a)
}

func TestRandomProducesDistinctOutput(t *testing.T) {
	a, err := Random(32)
	require.NoError(t, err)
	b, err := Random(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
