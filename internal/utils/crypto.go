// internal/utils/crypto.go
package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// HashString returns the hex-encoded SHA-256 of input. Document rows carry
// this as a stable content fingerprint independent of storage location.
func HashString(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// CID encryption. The content identifier of a registered document is
// encrypted with AES-256-GCM before it is published on-chain so the raw
// storage pointer is not publicly legible. Output is base64url
// (nonce || ciphertext).

var cidKey []byte

var ErrInvalidCiphertext = errors.New("invalid CID ciphertext")

// SetCIDKey installs the hex-encoded 32-byte key from config. Must be called
// once at startup before any Encrypt/DecryptCID.
func SetCIDKey(hexKey string) error {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return fmt.Errorf("CID key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("CID key must be 32 bytes, got %d", len(key))
	}
	cidKey = key
	return nil
}

func EncryptCID(plaintext string) (string, error) {
	if len(cidKey) == 0 {
		return "", errors.New("CID encryption key not configured")
	}
	if plaintext == "" {
		return "", errors.New("empty CID")
	}

	block, err := aes.NewCipher(cidKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func DecryptCID(ciphertext string) (string, error) {
	if len(cidKey) == 0 {
		return "", errors.New("CID encryption key not configured")
	}

	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(cidKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(raw) < gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	return string(plaintext), nil
}
