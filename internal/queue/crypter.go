package queue

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Crypter seals and opens queue payloads with AES-256-GCM. Every task and
// result payload is encrypted at rest; status strings are not (they carry no
// document content). GCM authenticates the ciphertext, so key mismatch and
// tampering both surface as ErrDecrypt.
type Crypter struct {
	aead cipher.AEAD
}

// NewCrypter builds a Crypter from a pre-shared 32-byte key.
func NewCrypter(key []byte) (*Crypter, error) {
	if len(key) != 32 {
		return nil, common.ConfigurationError("encryption key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "bad encryption key", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "gcm init failed", err)
	}
	return &Crypter{aead: aead}, nil
}

// Seal encrypts plaintext; the random nonce is prepended to the ciphertext.
func (c *Crypter) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, common.WrapError(err, "nonce")
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a payload produced by Seal.
func (c *Crypter) Open(payload []byte) ([]byte, error) {
	if len(payload) < c.aead.NonceSize() {
		return nil, common.NewAppError("DECRYPT_ERROR", "payload too short", common.ErrDecrypt)
	}
	nonce, ciphertext := payload[:c.aead.NonceSize()], payload[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// wrong key, rotated key, or tampering; never conflated with "not found"
		return nil, common.NewAppError("DECRYPT_ERROR", "authentication failed", common.ErrDecrypt)
	}
	return plaintext, nil
}
