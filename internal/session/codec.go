// Package session seals an authenticated portal session into a bearer token so that the
// server never has to store it.
package session

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"campusdual-backend/internal/components/assert"
	"campusdual-backend/internal/components/chrono"
	"campusdual-backend/internal/portal"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the lifetime of a token when none is configured.
const DefaultTTL = 14 * 24 * time.Hour

var (
	ErrTokenInvalid     = errors.New("token invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrDecryptionFailed = errors.New("token decryption failed")
	ErrMalformedClaims  = errors.New("token claims malformed")
)

type claims struct {
	jwt.RegisteredClaims
	Nonce  string `json:"nonce"`
	Cipher string `json:"cipher"`
}

// Codec encodes an AuthState into a signed token whose payload is encrypted, and back.
type Codec struct {
	keys Keys
	ttl  time.Duration
	time chrono.TimeAPI
}

func NewCodec(keys Keys, ttl time.Duration, timeAPI chrono.TimeAPI) Codec {
	assert.NotNil(keys.aead)
	assert.MinLen(keys.signing, derivedKeySize)
	assert.NotNil(timeAPI)
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Codec{keys: keys, ttl: ttl, time: timeAPI}
}

// TTL is the fixed lifetime of every token this codec issues.
func (c Codec) TTL() time.Duration {
	return c.ttl
}

func (c Codec) seal(plaintext []byte, now time.Time) (claims, error) {
	nonce := make([]byte, c.keys.aead.NonceSize())
	_, err := io.ReadFull(rand.Reader, nonce)
	if err != nil {
		return claims{}, fmt.Errorf("generate nonce: %w", err)
	}

	id := uuid.NewString()
	// the token id is bound as additional data so a ciphertext cannot be moved between tokens
	ciphertext := c.keys.aead.Seal(nil, nonce, plaintext, []byte(id))

	return claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Nonce:  base64.StdEncoding.EncodeToString(nonce),
		Cipher: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

func (c Codec) sign(cl claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.keys.signing)
}

// Encode seals the state with a fresh nonce and signs it.
func (c Codec) Encode(state portal.AuthState) (string, error) {
	plaintext, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	cl, err := c.seal(plaintext, c.time.Now())
	if err != nil {
		return "", err
	}
	token, err := c.sign(cl)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Decode verifies the signature and expiry of a token before anything is decrypted.
func (c Codec) Decode(token string) (portal.AuthState, error) {
	cl := &claims{}
	_, err := jwt.ParseWithClaims(
		token,
		cl,
		func(*jwt.Token) (any, error) {
			return c.keys.signing, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.time.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return portal.AuthState{}, ErrTokenExpired
	}
	if err != nil {
		return portal.AuthState{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	plaintext, err := c.open(*cl)
	if err != nil {
		return portal.AuthState{}, err
	}

	var state portal.AuthState
	decoder := json.NewDecoder(bytes.NewReader(plaintext))
	decoder.DisallowUnknownFields()
	err = decoder.Decode(&state)
	if err != nil {
		return portal.AuthState{}, fmt.Errorf("%w: %w", ErrMalformedClaims, err)
	}
	if state.SubjectID == "" || state.SubjectHash == "" || state.SessionCookie.Value == "" {
		return portal.AuthState{}, fmt.Errorf("%w: missing required field", ErrMalformedClaims)
	}
	return state, nil
}

func (c Codec) open(cl claims) ([]byte, error) {
	nonce, err := base64.StdEncoding.DecodeString(cl.Nonce)
	if err != nil || len(nonce) != c.keys.aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce", ErrDecryptionFailed)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(cl.Cipher)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", ErrDecryptionFailed)
	}
	plaintext, err := c.keys.aead.Open(nil, nonce, ciphertext, []byte(cl.ID))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
