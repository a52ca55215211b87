// internal/infra/crypto/decrypt.go
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const keySize = 32

var (
	ErrInvalidKey     = errors.New("encryption key must be 64 hex characters")
	ErrInvalidPayload = errors.New("encrypted payload must be iv:tag:ciphertext in hex")
)

// Decrypt opens an AES-256-GCM payload of the form iv:tag:ciphertext, every
// part hex encoded. The IV length is taken from the payload.
func Decrypt(hexKey, payload string) (string, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(key) != keySize {
		return "", ErrInvalidKey
	}

	parts := strings.Split(strings.TrimSpace(payload), ":")
	if len(parts) != 3 {
		return "", ErrInvalidPayload
	}
	var raw [3][]byte
	for i, p := range parts {
		if raw[i], err = hex.DecodeString(p); err != nil {
			return "", ErrInvalidPayload
		}
	}
	iv, tag, ciphertext := raw[0], raw[1], raw[2]
	if len(iv) == 0 {
		return "", ErrInvalidPayload
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}
	if len(tag) != gcm.Overhead() {
		return "", ErrInvalidPayload
	}

	plain, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt payload: %w", err)
	}
	return string(plain), nil
}
