package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the minimum length of both configured secrets in bytes.
const MinSecretLength = 32

const (
	aeadKeyInfo    = "campusdual session aead key"
	signingKeyInfo = "campusdual session signing key"
	derivedKeySize = 32
)

// Keys holds the symmetric key material of a Codec. It is built once at startup and shared
// read-only afterwards.
type Keys struct {
	aead    cipher.AEAD
	signing []byte
}

func deriveKey(secret []byte, info string) ([]byte, error) {
	key := make([]byte, derivedKeySize)
	_, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key)
	if err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveKeys expands the configured secrets into an AES-256-GCM key and an HS256 signing key.
func DeriveKeys(encryptionSecret, signingSecret []byte) (Keys, error) {
	if len(encryptionSecret) < MinSecretLength {
		return Keys{}, fmt.Errorf("encryption secret must be at least %d bytes", MinSecretLength)
	}
	if len(signingSecret) < MinSecretLength {
		return Keys{}, fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}

	aeadKey, err := deriveKey(encryptionSecret, aeadKeyInfo)
	if err != nil {
		return Keys{}, fmt.Errorf("derive encryption key: %w", err)
	}
	block, err := aes.NewCipher(aeadKey)
	if err != nil {
		return Keys{}, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return Keys{}, err
	}

	signing, err := deriveKey(signingSecret, signingKeyInfo)
	if err != nil {
		return Keys{}, fmt.Errorf("derive signing key: %w", err)
	}

	return Keys{aead: aead, signing: signing}, nil
}
