// Package session issues and verifies signed customer session tokens.
package session

import (
	"errors"
	"time"

	"aurum-storefront/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of an issued session.
const DefaultTTL = 7 * 24 * time.Hour

// ErrMissingSecret is returned when no signing secret is configured.
var ErrMissingSecret = errors.New("session: signing secret is not configured")

type tokenClaims struct {
	jwt.RegisteredClaims
	CustomerID string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A zero ttl selects DefaultTTL.
func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Issuer{secret: key, ttl: ttl, now: time.Now}, nil
}

// TTL exposes the session lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs the identity with issued-at now and a fixed expiry.
func (i *Issuer) Issue(c domain.Claims) (string, error) {
	now := i.now().UTC().Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		CustomerID: c.CustomerID,
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
	})
	return token.SignedString(i.secret)
}

// Verify returns the claims of a token with a valid signature that has not expired.
// Any failure yields ok=false.
func (i *Issuer) Verify(raw string) (domain.Claims, bool) {
	if raw == "" {
		return domain.Claims{}, false
	}
	var tc tokenClaims
	token, err := jwt.ParseWithClaims(raw, &tc, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid || tc.CustomerID == "" {
		return domain.Claims{}, false
	}
	out := domain.Claims{
		CustomerID: tc.CustomerID,
		Email:      tc.Email,
		FirstName:  tc.FirstName,
		LastName:   tc.LastName,
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		out.ExpiresAt = tc.ExpiresAt.Time
	}
	return out, true
}
