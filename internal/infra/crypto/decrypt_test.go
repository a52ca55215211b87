package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func seal(t *testing.T, hexKey, plain string) string {
	t.Helper()
	key, err := hex.DecodeString(hexKey)
	require.NoError(t, err)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCMWithNonceSize(block, 16)
	require.NoError(t, err)

	iv := []byte("0123456789abcdef")
	out := gcm.Seal(nil, iv, []byte(plain), nil)
	ct, tag := out[:len(out)-gcm.Overhead()], out[len(out)-gcm.Overhead():]
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct)
}

func TestDecrypt_RoundTrip(t *testing.T) {
	payload := seal(t, testKey, "sk_live_abc123")

	got, err := Decrypt(testKey, payload)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_abc123", got)
}

func TestDecrypt_Errors(t *testing.T) {
	good := seal(t, testKey, "sk_live_abc123")
	parts := strings.Split(good, ":")

	tests := []struct {
		name    string
		key     string
		payload string
		wantIs  error
	}{
		{name: "short key", key: "abcd", payload: good, wantIs: ErrInvalidKey},
		{name: "non hex key", key: strings.Repeat("z", 64), payload: good, wantIs: ErrInvalidKey},
		{name: "two parts", key: testKey, payload: parts[0] + ":" + parts[2], wantIs: ErrInvalidPayload},
		{name: "non hex part", key: testKey, payload: parts[0] + ":xx:" + parts[2], wantIs: ErrInvalidPayload},
		{name: "truncated tag", key: testKey, payload: parts[0] + ":" + parts[1][:8] + ":" + parts[2], wantIs: ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(tt.key, tt.payload)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	payload := seal(t, testKey, "sk_live_abc123")
	other := strings.Repeat("ab", 32)

	_, err := Decrypt(other, payload)
	assert.Error(t, err)
}
