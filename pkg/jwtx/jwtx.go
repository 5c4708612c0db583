// Package jwtx issues and verifies the signed access tokens shared between
// the auth service and the gateway. Tokens are HS256 JWTs over a shared
// secret; verification is stateless (signature + expiry only).
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh sessions.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
)

// Claims are the access-token claims. The subject is the user id; email and
// role ride along so callers never need a store lookup to identify the bearer.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Signer signs access tokens with a shared secret.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewSigner returns a Signer. A zero ttl falls back to DefaultAccessTokenTTL.
func NewSigner(secret []byte, issuer string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &Signer{secret: secret, issuer: issuer, ttl: ttl}
}

// TTL returns the configured access-token lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign produces a signed access token for the given identity.
func (s *Signer) Sign(userID, email, role string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        newJTI(),
		},
		Email: email,
		Role:  role,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verifier validates access tokens signed with the same shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier returns a Verifier. An empty issuer disables the issuer check.
func NewVerifier(secret []byte, issuer string) *Verifier {
	return &Verifier{secret: secret, issuer: issuer}
}

// Verify parses and validates a token string, returning the decoded claims.
// Failures map to the package sentinel errors so callers can distinguish an
// expired token from a forged or malformed one.
func (v *Verifier) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSig
		}
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, ErrMalformed
		}
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Claims{}, ErrIssuer
	}

	return claims, nil
}

// newJTI returns a URL-safe random identifier for the "jti" claim.
func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
