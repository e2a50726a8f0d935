package handler

import (
	"time"

	"github.com/deppfellow/employee-api/internal/lib/token"
	"github.com/deppfellow/employee-api/internal/server"
	"github.com/deppfellow/employee-api/internal/service"
	"github.com/deppfellow/employee-api/internal/validation"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	Handler
	auth *service.AuthService
}

func NewAuthHandler(s *server.Server, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{
		Handler: NewHandler(s),
		auth:    auth,
	}
}

// TokenRequest asks for a token. Password is accepted for client
// compatibility but not checked: there is no user store.
type TokenRequest struct {
	Username     string         `json:"username" validate:"required,max=256"`
	Password     string         `json:"password"`
	Email        string         `json:"email" validate:"omitempty,email"`
	UserID       string         `json:"userId" validate:"max=256"`
	CustomClaims map[string]any `json:"customClaims"`
}

func (r *TokenRequest) Validate() error {
	return validation.Struct(r)
}

type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error { return nil }

func (h *AuthHandler) CreateToken(c echo.Context, req *TokenRequest) (*TokenResponse, error) {
	issued, err := h.auth.IssueToken(token.Request{
		Username:     req.Username,
		Email:        req.Email,
		UserID:       req.UserID,
		CustomClaims: req.CustomClaims,
	})
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

func (h *AuthHandler) Public(c echo.Context, _ *EmptyRequest) (string, error) {
	return "This is a public endpoint accessible without authentication.", nil
}

func (h *AuthHandler) Protected(c echo.Context, _ *EmptyRequest) (string, error) {
	return "This is a protected endpoint accessible only with valid authentication.", nil
}
