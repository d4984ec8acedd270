package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	apiContext "attendr/internal/api/context"
	"attendr/internal/pkg/errors"
	"attendr/internal/platform/auth"
)

// AuthMiddleware admits requests carrying a valid access token and stores
// its claims under apiContext.Claims.
type AuthMiddleware struct {
	tokenSvc *auth.TokenService
}

func NewAuthMiddleware(tokenSvc *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, msg := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			unauthorized(w, msg)
			return
		}

		claims, err := m.tokenSvc.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected access token")
			if stderrors.Is(err, jwt.ErrTokenExpired) {
				unauthorized(w, "Session expired, please log in again")
				return
			}
			unauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Claims, claims)
		next(w, r.WithContext(ctx))
	}
}

// bearerToken extracts the token from an Authorization header. The scheme
// is matched case-insensitively. On failure it returns the client message.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "Missing authorization header"
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "Invalid authorization header format"
	}
	return token, ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="attendr"`)
	errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, msg, nil)
}
