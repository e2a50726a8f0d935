package middleware

import (
	"strings"
	"time"

	"github.com/deppfellow/employee-api/internal/errs"
	"github.com/deppfellow/employee-api/internal/lib/token"
	"github.com/deppfellow/employee-api/internal/server"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const bearerPrefix = "Bearer "

// AuthMiddleware checks the bearer tokens the auth endpoint issues.
type AuthMiddleware struct {
	server *server.Server
}

func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
	}
}

// RequireAuth rejects requests without a valid bearer token with 401. On
// success the claims and the user id are stored in the echo context.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		log := GetLogger(c)

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || strings.TrimSpace(raw) == "" {
			log.Warn().
				Str("function", "RequireAuth").
				Dur("duration", time.Since(start)).
				Msg("missing bearer token")
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		claims, err := auth.server.Tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			log.Warn().
				Err(err).
				Str("function", "RequireAuth").
				Dur("duration", time.Since(start)).
				Msg("rejected bearer token")
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		userID := subject(claims)
		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, userID)
		setLogger(c, log.With().Str("user_id", userID).Logger())

		GetLogger(c).Debug().
			Str("function", "RequireAuth").
			Dur("duration", time.Since(start)).
			Msg("user authenticated successfully")

		return next(c)
	}
}

// RequireClaim answers 403 unless the authenticated token carries name with
// value. It must run after RequireAuth.
func (auth *AuthMiddleware) RequireClaim(name, value string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := GetClaims(c)
			if !ok {
				return errs.NewUnauthorizedError("Unauthorized", false)
			}

			if !token.HasClaim(claims, name, value) {
				GetLogger(c).Warn().
					Str("function", "RequireClaim").
					Str("claim", name).
					Msg("required claim missing")
				return errs.NewForbiddenError("Forbidden", false)
			}

			return next(c)
		}
	}
}

// RequireAdmin is RequireClaim("admin", "true").
func (auth *AuthMiddleware) RequireAdmin() echo.MiddlewareFunc {
	return auth.RequireClaim(token.ClaimAdmin, "true")
}

func GetClaims(c echo.Context) (jwt.MapClaims, bool) {
	claims, ok := c.Get(ClaimsKey).(jwt.MapClaims)
	return claims, ok
}

// subject prefers the userId claim and falls back to sub.
func subject(claims jwt.MapClaims) string {
	if id, ok := claims[token.ClaimUserID].(string); ok && id != "" {
		return id
	}
	sub, _ := claims.GetSubject()
	return sub
}
