// Package token issues and verifies the HS256 bearer tokens the API accepts.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claim names shared by the issuer and the auth middleware.
const (
	ClaimUserID = "userId"
	ClaimEmail  = "email"
	ClaimAdmin  = "admin"
)

var ErrInvalidToken = errors.New("invalid token")

// reservedClaims cannot be overridden through Request.CustomClaims.
var reservedClaims = map[string]bool{
	"iss": true, "aud": true, "exp": true, "nbf": true, "iat": true,
	"jti": true, "sub": true, ClaimEmail: true, ClaimUserID: true,
}

// Request describes who a token is issued for.
type Request struct {
	Username     string
	Email        string
	UserID       string
	CustomClaims map[string]any
}

// Issued is a signed token and when it stops being accepted.
type Issued struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Issuer signs and verifies tokens with one shared secret.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration

	now func() time.Time
}

func NewIssuer(secret, issuer, audience string, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", ttl)
	}

	return &Issuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Generate signs a token for req. Custom claims are copied verbatim unless
// they collide with a registered or identity claim, in which case they are
// dropped.
func (i *Issuer) Generate(req Request) (*Issued, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	id := uuid.NewString()

	claims := jwt.MapClaims{}
	for name, value := range req.CustomClaims {
		if reservedClaims[name] {
			continue
		}
		claims[name] = value
	}

	claims["jti"] = id
	claims["sub"] = req.Username
	claims[ClaimEmail] = req.Email
	claims[ClaimUserID] = req.UserID
	claims["iss"] = i.issuer
	claims["aud"] = i.audience
	claims["iat"] = jwt.NewNumericDate(now)
	claims["nbf"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(expiresAt)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Issued{Token: signed, ID: id, ExpiresAt: expiresAt}, nil
}

// Parse verifies signature, algorithm, issuer, audience and lifetime, and
// returns the token's claims.
func (i *Issuer) Parse(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}

// HasClaim reports whether claims carry name with the given value. Booleans
// and numbers match their JSON text, so {"admin": true} satisfies "true".
func HasClaim(claims jwt.MapClaims, name, want string) bool {
	value, ok := claims[name]
	if !ok {
		return false
	}

	switch v := value.(type) {
	case string:
		return v == want
	case bool:
		return fmt.Sprint(v) == want
	case float64:
		return fmt.Sprint(v) == want
	default:
		return false
	}
}
