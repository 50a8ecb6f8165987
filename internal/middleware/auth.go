package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/handler/dto"
)

type contextKey string

const (
	// ContextKeyIdentity is the key for storing the caller identity in request context.
	ContextKeyIdentity contextKey = "identity"
)

// AuthMiddleware handles Bearer token authentication.
type AuthMiddleware struct {
	tokens *TokenManager
	// anonymous lets requests without a token through with no identity.
	anonymous bool
}

// NewAuthMiddleware creates a new AuthMiddleware. tokens may be nil only
// when anonymous is set.
func NewAuthMiddleware(tokens *TokenManager, anonymous bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:    tokens,
		anonymous: anonymous,
	}
}

// Authenticate validates the Bearer token and adds the identity to the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.anonymous && !hasCredentials(r) {
			next.ServeHTTP(w, r)
			return
		}

		token, reason := bearerToken(r)
		if reason != "" {
			unauthorized(w, reason)
			return
		}

		if m.tokens == nil {
			unauthorized(w, "token verification is not configured")
			return
		}

		identity, err := m.tokens.Verify(token)
		if err != nil {
			slog.Debug("token rejected", "error", err, "path", r.URL.Path)
			unauthorized(w, err.Error())
			return
		}

		ctx := WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func hasCredentials(r *http.Request) bool {
	return r.Header.Get("Authorization") != "" || r.URL.Query().Get("access_token") != ""
}

// bearerToken extracts the token from the Authorization header, or from the
// access_token query parameter for WebSocket upgrades. The second result is
// a non-empty reason when no usable token was found.
func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, ""
		}
		return "", "missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", "invalid authorization header format"
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", "missing token"
	}
	return token, ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(dto.NewErrorResponse("UNAUTHORIZED", message)); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, identity)
}

// GetIdentityFromContext retrieves the authenticated identity from request
// context. It returns nil for anonymous requests.
func GetIdentityFromContext(ctx context.Context) *domain.Identity {
	identity, _ := ctx.Value(ContextKeyIdentity).(*domain.Identity)
	return identity
}
