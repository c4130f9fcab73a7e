package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	SecretEnvVar = "JWT_SECRET"

	keyInfo = "notebox session signing key v1"
)

type (
	Key [32]byte
)

var (
	errEmptySecret = errors.New("session: signing secret cannot be empty")
)

// DeriveKey expands secret into the HMAC key used to sign tokens.
func DeriveKey(secret string) (*Key, error) {
	if len(secret) == 0 {
		return nil, errEmptySecret
	}
	var k Key
	_, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), k[:])
	if err != nil {
		return nil, fmt.Errorf("session: unable to derive key, cause %w", err)
	}
	return &k, nil
}

// NewSecret returns a random secret suitable for JWT_SECRET.
func NewSecret(entropy io.Reader) (string, error) {
	if entropy == nil {
		entropy = rand.Reader
	}
	var buf [32]byte
	_, err := io.ReadFull(entropy, buf[:])
	if err != nil {
		return "", fmt.Errorf("session: unable to read entropy, cause %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf[:]), nil
}

func (k *Key) Zero() {
	for i := range k {
		k[i] = 0
	}
}
