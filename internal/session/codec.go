package session

// Package session implements the signed stateless session cookie: a compact
// HS256 token carrying {subject, issued-at, expiry, token ID, email}. The
// server keeps no session table; possession of a validly signed, unexpired
// cookie is the session.

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Decode failure kinds. Callers map all of them to a uniform
// "unauthenticated" outcome at the request boundary so responses never leak
// why resolution failed.
var (
	ErrAbsent           = errors.New("session cookie absent")
	ErrMalformed        = errors.New("session cookie malformed")
	ErrSignatureInvalid = errors.New("session cookie signature invalid")
	ErrExpired          = errors.New("session cookie expired")
)

// errUnknownKey marks a cookie signed by a key no longer in the ring.
var errUnknownKey = errors.New("unknown signing key")

// Claims is the session cookie payload. Role is deliberately absent: roles
// can change after issuance, so they are re-resolved on every request.
type Claims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// Codec encodes and decodes session cookies against a rotating keyring.
type Codec struct {
	keys   *Keyring
	issuer string
	now    func() time.Time
}

// CodecOption customizes a Codec.
type CodecOption func(*Codec)

// WithIssuer sets and enforces the iss claim.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) { c.issuer = issuer }
}

// WithClock overrides the time source, used by tests to pin the expiry boundary.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// NewCodec constructs a Codec over the given keyring.
func NewCodec(keys *Keyring, opts ...CodecOption) *Codec {
	c := &Codec{keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode signs claims with the current key, stamping the key ID so
// verification survives rotation.
func (c *Codec) Encode(claims Claims) (string, error) {
	if c.issuer != "" {
		claims.Issuer = c.issuer
	}
	key := c.keys.Current()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = key.ID
	return token.SignedString(key.Secret)
}

// Decode verifies a raw cookie value and returns its claims, or exactly one
// of the failure kinds above. HMAC comparison inside the JWT library is
// constant-time. The expiry boundary is exclusive: a cookie valid "until" T
// is invalid at T.
func (c *Codec) Decode(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrAbsent
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var claims Claims
	token, err := jwt.NewParser(opts...).ParseWithClaims(raw, &claims, c.keyFor)
	if err != nil {
		return Claims{}, classifyDecodeError(err)
	}
	if !token.Valid || claims.Subject == "" {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}

// keyFor selects the verification key by the kid header.
func (c *Codec) keyFor(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if secret, ok := c.keys.lookup(kid); ok {
		return secret, nil
	}
	return nil, errUnknownKey
}

// classifyDecodeError maps jwt parse errors onto the codec's failure kinds.
// Signature verification runs before claims validation, so an expired error
// implies the signature already checked out.
//
// Tampering that corrupts the base64url or JSON encoding fails structural
// parsing before any signature check and reports as ErrMalformed rather
// than ErrSignatureInvalid. Neither kind ever yields claims, and the
// request boundary maps both to the same uniform rejection.
func classifyDecodeError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, errUnknownKey),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrMalformed
	}
}
