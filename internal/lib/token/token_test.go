package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-test-secret-that-is-long-enough-for-hs256"

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(testSecret, "employee-api", "employee-api-clients", 15*time.Minute)
	require.NoError(t, err)
	return issuer
}

func TestGenerateAndParse(t *testing.T) {
	issuer := newTestIssuer(t)

	issued, err := issuer.Generate(Request{
		Username:     "ada",
		Email:        "ada@example.com",
		UserID:       "42",
		CustomClaims: map[string]any{ClaimAdmin: true, "sub": "mallory"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := issuer.Parse(issued.Token)
	require.NoError(t, err)

	assert.Equal(t, "ada", claims["sub"])
	assert.Equal(t, "ada@example.com", claims[ClaimEmail])
	assert.Equal(t, "42", claims[ClaimUserID])
	assert.Equal(t, issued.ID, claims["jti"])
	assert.True(t, HasClaim(claims, ClaimAdmin, "true"))
}

func TestGenerateSetsLifetime(t *testing.T) {
	issuer := newTestIssuer(t)
	fixed := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	issued, err := issuer.Generate(Request{Username: "ada"})
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(15*time.Minute), issued.ExpiresAt)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issuer := newTestIssuer(t)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	issued, err := issuer.Generate(Request{Username: "ada"})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	issuer := newTestIssuer(t)

	other, err := NewIssuer("another-secret-that-is-also-long-enough", "employee-api", "employee-api-clients", time.Minute)
	require.NoError(t, err)
	issued, err := other.Generate(Request{Username: "ada"})
	require.NoError(t, err)

	_, err = issuer.Parse(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongAudience, err := NewIssuer(testSecret, "employee-api", "someone-else", time.Minute)
	require.NoError(t, err)
	issued, err = wrongAudience.Generate(Request{Username: "ada"})
	require.NoError(t, err)

	_, err = issuer.Parse(issued.Token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)

	_, err = issuer.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	issuer := newTestIssuer(t)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": "employee-api",
		"aud": "employee-api-clients",
		"exp": jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHasClaim(t *testing.T) {
	claims := jwt.MapClaims{"admin": "true", "flag": true, "level": float64(3), "list": []any{"a"}}

	assert.True(t, HasClaim(claims, "admin", "true"))
	assert.True(t, HasClaim(claims, "flag", "true"))
	assert.True(t, HasClaim(claims, "level", "3"))
	assert.False(t, HasClaim(claims, "list", "a"))
	assert.False(t, HasClaim(claims, "missing", "true"))
	assert.False(t, HasClaim(jwt.MapClaims{"admin": false}, "admin", "true"))
}

func TestNewIssuerValidatesInput(t *testing.T) {
	_, err := NewIssuer("", "i", "a", time.Minute)
	assert.Error(t, err)

	_, err = NewIssuer(testSecret, "i", "a", 0)
	assert.Error(t, err)
}
