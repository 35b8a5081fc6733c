package session

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"campusdual-backend/internal/components/chrono"
	"campusdual-backend/internal/portal"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, time.October, 1, 8, 0, 0, 0, time.UTC)

func testState() portal.AuthState {
	return portal.AuthState{
		SessionCookie: portal.SessionCookie{
			Name:    "MYSAPSSO2",
			Value:   "AjExMDAgAA1wb3J0YWw6MzAwMTIzNIgAB2RlZmF1bHQBAAgzMDAxMjM0",
			Domain:  "campus-dual.de",
			Path:    "/",
			Expires: testStart.Add(time.Hour * 8).Unix(),
		},
		SubjectID:   "3001234",
		SubjectHash: "5f0a1c2b3d4e5f60718293a4b5c6d7e8",
		Password:    "correct horse battery staple",
	}
}

func testCodec(t *testing.T, clock chrono.TimeAPI) Codec {
	t.Helper()
	keys, err := DeriveKeys(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("fedcba9876543210fedcba9876543210"),
	)
	require.NoError(t, err)
	return NewCodec(keys, DefaultTTL, clock)
}

func TestRoundTrip(t *testing.T) {
	codec := testCodec(t, chrono.NewFakeTime(testStart))

	token, err := codec.Encode(testState())
	require.NoError(t, err)
	require.NotContains(t, token, "correct horse")

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, testState(), decoded)
}

func TestEncodeUsesFreshNonce(t *testing.T) {
	codec := testCodec(t, chrono.NewFakeTime(testStart))

	first, err := codec.Encode(testState())
	require.NoError(t, err)
	second, err := codec.Encode(testState())
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestExpiry(t *testing.T) {
	clock := chrono.NewFakeTime(testStart)
	codec := testCodec(t, clock)

	token, err := codec.Encode(testState())
	require.NoError(t, err)

	clock.Advance(DefaultTTL - time.Second)
	_, err = codec.Decode(token)
	require.NoError(t, err)

	clock.Advance(time.Second * 2)
	_, err = codec.Decode(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenFromTheFutureIsInvalid(t *testing.T) {
	clock := chrono.NewFakeTime(testStart.Add(time.Hour))
	codec := testCodec(t, clock)
	token, err := codec.Encode(testState())
	require.NoError(t, err)

	past := testCodec(t, chrono.NewFakeTime(testStart))
	_, err = past.Decode(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func flipSegmentBit(t *testing.T, token string, segment, bit int) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	raw, err := base64.RawURLEncoding.DecodeString(parts[segment])
	require.NoError(t, err)
	raw[bit/8] ^= 1 << (bit % 8)
	parts[segment] = base64.RawURLEncoding.EncodeToString(raw)
	return strings.Join(parts, ".")
}

func TestTamperedSignature(t *testing.T) {
	codec := testCodec(t, chrono.NewFakeTime(testStart))
	token, err := codec.Encode(testState())
	require.NoError(t, err)

	for bit := 0; bit < 256; bit++ {
		_, err := codec.Decode(flipSegmentBit(t, token, 2, bit))
		require.ErrorIs(t, err, ErrTokenInvalid, "bit %d", bit)
	}
}

const base64urlAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// TestTamperedPaddingBits changes the unused low bits of the last character of a segment,
// which a lenient base64 decoder maps back to the same bytes.
func TestTamperedPaddingBits(t *testing.T) {
	codec := testCodec(t, chrono.NewFakeTime(testStart))
	token, err := codec.Encode(testState())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	for segment := 1; segment < 3; segment++ {
		encoded := parts[segment]
		raw, err := base64.RawURLEncoding.DecodeString(encoded)
		require.NoError(t, err)
		spare := len(encoded)*6 - len(raw)*8
		if spare == 0 {
			continue
		}

		last := strings.IndexByte(base64urlAlphabet, encoded[len(encoded)-1])
		require.GreaterOrEqual(t, last, 0)
		for mask := 1; mask < 1<<spare; mask++ {
			forged := make([]string, 3)
			copy(forged, parts)
			forged[segment] = encoded[:len(encoded)-1] + string(base64urlAlphabet[last^mask])
			require.NotEqual(t, token, strings.Join(forged, "."))

			_, err := codec.Decode(strings.Join(forged, "."))
			require.ErrorIs(t, err, ErrTokenInvalid, "segment %d mask %d", segment, mask)
		}
	}
}

func TestTamperedPayload(t *testing.T) {
	codec := testCodec(t, chrono.NewFakeTime(testStart))
	token, err := codec.Encode(testState())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	for bit := 0; bit < len(payload)*8; bit += 7 {
		_, err := codec.Decode(flipSegmentBit(t, token, 1, bit))
		require.ErrorIs(t, err, ErrTokenInvalid, "bit %d", bit)
	}
}

func TestTamperedCiphertextWithValidSignature(t *testing.T) {
	codec := testCodec(t, chrono.NewFakeTime(testStart))
	cl, err := codec.seal([]byte(`{"user":"3001234"}`), testStart)
	require.NoError(t, err)

	ciphertext, err := base64.StdEncoding.DecodeString(cl.Cipher)
	require.NoError(t, err)

	for bit := 0; bit < len(ciphertext)*8; bit++ {
		tampered := make([]byte, len(ciphertext))
		copy(tampered, ciphertext)
		tampered[bit/8] ^= 1 << (bit % 8)

		forged := cl
		forged.Cipher = base64.StdEncoding.EncodeToString(tampered)
		token, err := codec.sign(forged)
		require.NoError(t, err)

		_, err = codec.Decode(token)
		require.ErrorIs(t, err, ErrDecryptionFailed, "bit %d", bit)
	}
}

func TestCiphertextBoundToTokenId(t *testing.T) {
	codec := testCodec(t, chrono.NewFakeTime(testStart))
	first, err := codec.seal([]byte(`{}`), testStart)
	require.NoError(t, err)
	second, err := codec.seal([]byte(`{}`), testStart)
	require.NoError(t, err)

	first.ID = second.ID
	token, err := codec.sign(first)
	require.NoError(t, err)
	_, err = codec.Decode(token)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestMalformedClaims(t *testing.T) {
	codec := testCodec(t, chrono.NewFakeTime(testStart))

	table := []struct {
		name      string
		plaintext string
	}{
		{name: "unknown field", plaintext: `{"user":"3001234","hash":"abc","cookie":{"value":"x"},"admin":true}`},
		{name: "missing hash", plaintext: `{"user":"3001234","cookie":{"value":"x"}}`},
		{name: "not json", plaintext: `user=3001234`},
		{name: "wrong type", plaintext: `{"user":3001234}`},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			cl, err := codec.seal([]byte(row.plaintext), testStart)
			require.NoError(t, err)
			token, err := codec.sign(cl)
			require.NoError(t, err)

			_, err = codec.Decode(token)
			require.ErrorIs(t, err, ErrMalformedClaims)
		})
	}
}

func TestWrongKeysAndAlgorithms(t *testing.T) {
	codec := testCodec(t, chrono.NewFakeTime(testStart))
	token, err := codec.Encode(testState())
	require.NoError(t, err)

	otherKeys, err := DeriveKeys(
		[]byte("another encryption secret of 32+ bytes"),
		[]byte("another signing secret of at least 32"),
	)
	require.NoError(t, err)
	other := NewCodec(otherKeys, DefaultTTL, chrono.NewFakeTime(testStart))
	_, err = other.Decode(token)
	require.ErrorIs(t, err, ErrTokenInvalid)

	cl, err := codec.seal([]byte(`{}`), testStart)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, cl).SignedString(codec.keys.signing)
	require.NoError(t, err)
	_, err = codec.Decode(hs512)
	require.ErrorIs(t, err, ErrTokenInvalid)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, cl).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(unsigned)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = codec.Decode("not.a.token")
	require.ErrorIs(t, err, ErrTokenInvalid)
	_, err = codec.Decode("")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestDeriveKeysRejectsShortSecrets(t *testing.T) {
	_, err := DeriveKeys([]byte("short"), []byte("fedcba9876543210fedcba9876543210"))
	require.Error(t, err)
	_, err = DeriveKeys([]byte("0123456789abcdef0123456789abcdef"), []byte("short"))
	require.Error(t, err)
}
