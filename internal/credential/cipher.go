// Package credential encrypts login credentials into the envelope the
// upstream identity service decrypts: base64(salt || iv || ciphertext).
package credential

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation and layout parameters fixed by the upstream server. They are
// weak by modern standards and must not be changed: the server decrypts with
// exactly these values.
const (
	SaltSize   = 16
	IVSize     = aes.BlockSize
	KeySize    = 32
	Iterations = 100
)

// ErrMissingKey is returned when Encrypt is called without a secret key.
var ErrMissingKey = errors.New("credential: secret key is not configured")

// randReader is swapped in tests that need to force a random source failure.
var randReader io.Reader = rand.Reader

// Payload is the plaintext credential object serialized before encryption.
// It lives for a single request and is never persisted.
type Payload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ClientIP string `json:"ipaddress"`
}

// Seal serializes p to JSON and encrypts it under secretKey.
func Seal(p Payload, secretKey string) (string, error) {
	if secretKey == "" {
		return "", ErrMissingKey
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("credential: marshal payload: %w", err)
	}
	return Encrypt(string(raw), secretKey)
}

// Encrypt derives an AES-256 key with PBKDF2-SHA1 from secretKey and a fresh
// salt, encrypts plaintext with AES-CBC/PKCS7 under a fresh IV and returns
// base64(salt || iv || ciphertext).
func Encrypt(plaintext, secretKey string) (string, error) {
	if secretKey == "" {
		return "", ErrMissingKey
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return "", fmt.Errorf("credential: read salt: %w", err)
	}
	key := DeriveKey(secretKey, salt)

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(randReader, iv); err != nil {
		return "", fmt.Errorf("credential: read iv: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("credential: new cipher: %w", err)
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)

	out := make([]byte, SaltSize+IVSize+len(padded))
	copy(out[:SaltSize], salt)
	copy(out[SaltSize:SaltSize+IVSize], iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[SaltSize+IVSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// DeriveKey returns the 256-bit AES key for secretKey and salt.
func DeriveKey(secretKey string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secretKey), salt, Iterations, KeySize, sha1.New)
}

// pkcs7Pad always appends between 1 and blockSize bytes.
func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}
