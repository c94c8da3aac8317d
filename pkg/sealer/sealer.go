package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrInvalidToken = errors.New("invalid token")

const separator = ":"

// Sealer produces opaque, tamper-proof tokens with AES-GCM. The purpose is
// bound as additional data so a token minted for one use cannot be replayed
// as another.
type Sealer struct {
	aead cipher.AEAD
}

func New(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Seal(purpose string, parts ...string) (string, error) {
	for _, p := range parts {
		if strings.Contains(p, separator) {
			return "", fmt.Errorf("token part %q contains %q", p, separator)
		}
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	plaintext := []byte(strings.Join(parts, separator))
	ct := s.aead.Seal(nonce, nonce, plaintext, []byte(purpose))
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open verifies token and returns exactly want parts.
func (s *Sealer) Open(purpose, token string, want int) ([]string, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, ErrInvalidToken
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize+s.aead.Overhead() {
		return nil, ErrInvalidToken
	}

	pt, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(purpose))
	if err != nil {
		return nil, ErrInvalidToken
	}

	parts := strings.Split(string(pt), separator)
	if len(parts) != want {
		return nil, ErrInvalidToken
	}
	return parts, nil
}
