package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyring(t *testing.T, ids ...string) *Keyring {
	t.Helper()
	keys := make([]Key, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, Key{ID: id, Secret: []byte("0123456789abcdef0123456789abcdef-" + id)})
	}
	ring, err := NewKeyring(keys...)
	require.NoError(t, err)
	return ring
}

func testClaims(sub string, exp time.Time) Claims {
	return Claims{
		Email: sub + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ID:        "jti-" + sub,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec(testKeyring(t, "v1"))

	raw, err := codec.Encode(testClaims("user-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	claims, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "user-1@example.com", claims.Email)
	assert.Equal(t, "jti-user-1", claims.ID)
}

func TestCodec_AbsentCookie(t *testing.T) {
	codec := NewCodec(testKeyring(t, "v1"))

	_, err := codec.Decode("")
	assert.ErrorIs(t, err, ErrAbsent)
}

func TestCodec_Malformed(t *testing.T) {
	codec := NewCodec(testKeyring(t, "v1"))

	for _, raw := range []string{"garbage", "a.b", "a.b.c.d"} {
		_, err := codec.Decode(raw)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", raw)
	}
}

func TestCodec_TamperedPayload(t *testing.T) {
	codec := NewCodec(testKeyring(t, "v1"))

	raw, err := codec.Encode(testClaims("user-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	// Rewrite the subject inside the payload without touching the signature.
	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(payload, &body))
	body["sub"] = "someone-else"
	forged, err := json.Marshal(body)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	_, err = codec.Decode(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestCodec_TamperedSignature(t *testing.T) {
	codec := NewCodec(testKeyring(t, "v1"))

	raw, err := codec.Encode(testClaims("user-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	flip := func(b byte) byte {
		if b == 'A' {
			return 'B'
		}
		return 'A'
	}
	tampered := raw[:len(raw)-1] + string(flip(raw[len(raw)-1]))

	_, err = codec.Decode(tampered)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestCodec_CorruptedPayloadEncoding(t *testing.T) {
	codec := NewCodec(testKeyring(t, "v1"))

	raw, err := codec.Encode(testClaims("user-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	// Corruption that breaks the base64url encoding fails structural parsing
	// before the signature check, so it reports as malformed. No claims come
	// back either way.
	parts := strings.Split(raw, ".")
	parts[1] = "!!" + parts[1]

	_, err = codec.Decode(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_ExpiryBoundaryIsExclusive(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := expiry
	codec := NewCodec(testKeyring(t, "v1"), WithClock(func() time.Time { return now }))

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(expiry.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}}
	raw, err := codec.Encode(claims)
	require.NoError(t, err)

	// At exactly the expiry instant the cookie is already invalid.
	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, ErrExpired)

	// One second earlier it still resolves.
	now = expiry.Add(-time.Second)
	decoded, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", decoded.Subject)
}

func TestCodec_KeyRotation(t *testing.T) {
	oldRing := testKeyring(t, "v1")
	raw, err := NewCodec(oldRing).Encode(testClaims("user-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	// New ring signs with v2 but still verifies v1 cookies.
	rotated := NewCodec(testKeyring(t, "v2", "v1"))
	claims, err := rotated.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	// Once v1 is dropped from the ring the old cookie stops verifying.
	retired := NewCodec(testKeyring(t, "v2"))
	_, err = retired.Decode(raw)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestCodec_IssuerEnforced(t *testing.T) {
	ring := testKeyring(t, "v1")
	issued, err := NewCodec(ring, WithIssuer("authgate")).Encode(testClaims("user-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = NewCodec(ring, WithIssuer("other-app")).Decode(issued)
	assert.Error(t, err)
}

func TestNewKeyring_Validation(t *testing.T) {
	_, err := NewKeyring()
	assert.Error(t, err)

	_, err = NewKeyring(Key{ID: "v1", Secret: []byte("short")})
	assert.Error(t, err)

	long := []byte("0123456789abcdef0123456789abcdef")
	_, err = NewKeyring(Key{ID: "", Secret: long})
	assert.Error(t, err)

	_, err = NewKeyring(Key{ID: "v1", Secret: long}, Key{ID: "v1", Secret: long})
	assert.Error(t, err)
}

func TestParseKeys(t *testing.T) {
	keys, err := ParseKeys([]string{"v2:0123456789abcdef0123456789abcdef", "v1:fedcba9876543210fedcba9876543210"})
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "v2", keys[0].ID)

	_, err = ParseKeys([]string{"missing-separator"})
	assert.Error(t, err)

	_, err = ParseKeys(nil)
	assert.Error(t, err)
}
