package service

import (
	"github.com/deppfellow/employee-api/internal/lib/token"
	"github.com/rs/zerolog"
)

// TokenIssuer signs bearer tokens. *token.Issuer implements it.
type TokenIssuer interface {
	Generate(req token.Request) (*token.Issued, error)
}

type AuthService struct {
	issuer TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(issuer TokenIssuer, logger zerolog.Logger) *AuthService {
	return &AuthService{
		issuer: issuer,
		log:    logger.With().Str("component", "auth_service").Logger(),
	}
}

// IssueToken signs a token for req. Only claim names are logged, never
// their values.
func (s *AuthService) IssueToken(req token.Request) (*token.Issued, error) {
	issued, err := s.issuer.Generate(req)
	if err != nil {
		return nil, err
	}

	claimNames := make([]string, 0, len(req.CustomClaims))
	for name := range req.CustomClaims {
		claimNames = append(claimNames, name)
	}

	s.log.Info().
		Str("username", req.Username).
		Strs("custom_claims", claimNames).
		Time("expires_at", issued.ExpiresAt).
		Msg("token issued")

	return issued, nil
}
