package session

import (
	"strings"
	"testing"
	"time"

	"aurum-storefront/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testClaims = domain.Claims{
	CustomerID: "gid://shopify/Customer/1",
	Email:      "a@b.com",
	FirstName:  "Ada",
	LastName:   "Lovelace",
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer(nil, 0)
	require.ErrorIs(t, err, ErrMissingSecret)

	iss, err := NewIssuer([]byte("k"), 0)
	require.NoError(t, err)
	require.Equal(t, DefaultTTL, iss.TTL())
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	iss, err := NewIssuer([]byte("secret"), 0)
	require.NoError(t, err)
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss.now = fixedClock(issuedAt)

	tok, err := iss.Issue(testClaims)
	require.NoError(t, err)

	iss.now = fixedClock(issuedAt.Add(6 * 24 * time.Hour))
	got, ok := iss.Verify(tok)
	require.True(t, ok)
	require.Equal(t, testClaims.CustomerID, got.CustomerID)
	require.Equal(t, testClaims.Email, got.Email)
	require.Equal(t, testClaims.FirstName, got.FirstName)
	require.Equal(t, testClaims.LastName, got.LastName)
	require.True(t, got.IssuedAt.Equal(issuedAt))
	require.True(t, got.ExpiresAt.Equal(issuedAt.Add(DefaultTTL)))
}

func TestVerify_Expired(t *testing.T) {
	iss, err := NewIssuer([]byte("secret"), time.Hour)
	require.NoError(t, err)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss.now = fixedClock(start)

	tok, err := iss.Issue(testClaims)
	require.NoError(t, err)

	iss.now = fixedClock(start.Add(2 * time.Hour))
	_, ok := iss.Verify(tok)
	require.False(t, ok)
}

func TestVerify_Rejects(t *testing.T) {
	iss, err := NewIssuer([]byte("right"), 0)
	require.NoError(t, err)
	other, err := NewIssuer([]byte("wrong"), 0)
	require.NoError(t, err)

	foreign, err := other.Issue(testClaims)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id":  "x",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "x"}).SignedString([]byte("right"))
	require.NoError(t, err)

	good, err := iss.Issue(testClaims)
	require.NoError(t, err)
	tampered := good[:strings.LastIndex(good, ".")+1] + "AAAA"

	for name, tok := range map[string]string{
		"empty":      "",
		"malformed":  "not.a.jwt",
		"bad secret": foreign,
		"alg none":   unsigned,
		"no expiry":  noExpiry,
		"tampered":   tampered,
	} {
		_, ok := iss.Verify(tok)
		require.False(t, ok, name)
	}
}
