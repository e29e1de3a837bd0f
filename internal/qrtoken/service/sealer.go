package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/smallbiznis/bonos/internal/qrtoken/domain"
	"golang.org/x/crypto/chacha20poly1305"
)

const tokenPrefix = "v1."

var additionalData = []byte("bonos.qr.v1")

type xchachaSealer struct {
	key []byte
}

// NewSealer derives a 256-bit XChaCha20-Poly1305 key from secret.
func NewSealer(secret string) (domain.Sealer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, domain.ErrMissingSecret
	}
	sum := sha256.Sum256([]byte(secret))
	return &xchachaSealer{key: sum[:]}, nil
}

func (s *xchachaSealer) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plaintext, additionalData)
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *xchachaSealer) Open(token string) ([]byte, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, errors.New("unknown token version")
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, tokenPrefix))
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, errors.New("token too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, additionalData)
}
