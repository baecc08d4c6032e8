package queue

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestCrypterRoundTrip(t *testing.T) {
	c, err := NewCrypter(testKey())
	require.NoError(t, err)

	plain := []byte(`{"task_id":"task_1","pdf_path":"/tmp/a.pdf"}`)
	sealed, err := c.Seal(plain)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "task_1", "ciphertext must not leak plaintext")

	got, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestCrypterRejectsBadKeySize(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33} {
		_, err := NewCrypter(bytes.Repeat([]byte{1}, n))
		require.Error(t, err, "key size %d", n)
		assert.True(t, errors.Is(err, common.ErrConfiguration))
	}
}

func TestCrypterDetectsTampering(t *testing.T) {
	c, err := NewCrypter(testKey())
	require.NoError(t, err)

	sealed, err := c.Seal([]byte("sensitive"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = c.Open(sealed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDecrypt))
}

func TestCrypterWrongKey(t *testing.T) {
	c1, err := NewCrypter(testKey())
	require.NoError(t, err)
	c2, err := NewCrypter(bytes.Repeat([]byte{0x24}, 32))
	require.NoError(t, err)

	sealed, err := c1.Seal([]byte("sensitive"))
	require.NoError(t, err)

	_, err = c2.Open(sealed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDecrypt))
}

func TestCrypterNoncesDiffer(t *testing.T) {
	c, err := NewCrypter(testKey())
	require.NoError(t, err)

	a, err := c.Seal([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := c.Seal([]byte("same plaintext"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
