package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/voucher-auth/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	nonceSize = 12
	keySize   = 32
)

var tokenKeySalt = []byte("voucher-auth/verification-token/v1")

// DeriveKeys stretches secret into an AES-256 key and an HMAC-SHA256 key.
func DeriveKeys(secret []byte) (encKey, macKey []byte) {
	k := argon2.IDKey(secret, tokenKeySalt, 1, 64*1024, 4, 2*keySize)
	return k[:keySize], k[keySize:]
}

// TokenCodec turns raw verification codes into URL-safe opaque strings and
// back. Encoding is deterministic for a given key: the GCM nonce is derived
// from an HMAC of the plaintext.
type TokenCodec struct {
	aead   cipher.AEAD
	macKey []byte
}

func NewTokenCodec(secret string) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token codec secret is empty")
	}

	encKey, macKey := DeriveKeys([]byte(secret))

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	return &TokenCodec{aead: aead, macKey: macKey}, nil
}

func (c *TokenCodec) nonce(plain []byte) []byte {
	m := hmac.New(sha256.New, c.macKey)
	m.Write(plain)
	return m.Sum(nil)[:nonceSize]
}

// Encode returns base64url(nonce || ciphertext) without padding.
func (c *TokenCodec) Encode(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token is empty: %w", common.ErrorBadRequest)
	}

	plain := []byte(token)
	nonce := c.nonce(plain)

	out := make([]byte, 0, nonceSize+len(plain)+c.aead.Overhead())
	out = append(out, nonce...)
	out = c.aead.Seal(out, nonce, plain, nil)

	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decode reverses Encode. Any input that is not a value produced by Encode
// under the same key fails with common.ErrMalformedToken.
func (c *TokenCodec) Decode(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", common.ErrMalformedToken)
	}
	if len(raw) < nonceSize+c.aead.Overhead() {
		return "", fmt.Errorf("token too short: %w", common.ErrMalformedToken)
	}

	nonce, ct := raw[:nonceSize], raw[nonceSize:]
	plain, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("open token: %w", common.ErrMalformedToken)
	}
	if !hmac.Equal(nonce, c.nonce(plain)) {
		return "", fmt.Errorf("token nonce mismatch: %w", common.ErrMalformedToken)
	}

	return string(plain), nil
}
