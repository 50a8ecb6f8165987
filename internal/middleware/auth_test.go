package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/middleware"
)

func newManager(t *testing.T, cfg middleware.TokenConfig) *middleware.TokenManager {
	t.Helper()
	m, err := middleware.NewTokenManager(cfg)
	require.NoError(t, err)
	return m
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m := newManager(t, middleware.TokenConfig{Secret: "s3cret", Issuer: "tasktrack", Duration: time.Hour})

	token, err := m.Issue(domain.Identity{UserID: "u1", DisplayName: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	identity, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, &domain.Identity{UserID: "u1", DisplayName: "Alice", Email: "alice@example.com"}, identity)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := newManager(t, middleware.TokenConfig{Secret: "s3cret", Issuer: "tasktrack", Duration: time.Hour})

	otherKey := newManager(t, middleware.TokenConfig{Secret: "different", Issuer: "tasktrack"})
	foreignKey, err := otherKey.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	otherIssuer := newManager(t, middleware.TokenConfig{Secret: "s3cret", Issuer: "someone-else"})
	foreignIssuer, err := otherIssuer.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "random string", token: "not.a.valid.token"},
		{name: "wrong key", token: foreignKey},
		{name: "wrong issuer", token: foreignIssuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			assert.ErrorIs(t, err, middleware.ErrInvalidToken)
		})
	}
}

func TestTokenManager_Expired(t *testing.T) {
	m := newManager(t, middleware.TokenConfig{Secret: "s3cret", Duration: -time.Minute})

	token, err := m.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	// A negative duration is treated as no expiry.
	_, err = m.Verify(token)
	require.NoError(t, err)

	expiring := newManager(t, middleware.TokenConfig{Secret: "s3cret", Duration: time.Nanosecond})
	token, err = expiring.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = expiring.Verify(token)
	assert.ErrorIs(t, err, middleware.ErrExpiredToken)
}

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	_, err := middleware.NewTokenManager(middleware.TokenConfig{})
	assert.Error(t, err)
}

func serve(mw *middleware.AuthMiddleware, req *http.Request) (*httptest.ResponseRecorder, *domain.Identity, bool) {
	var (
		seen   *domain.Identity
		called bool
	)
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = middleware.GetIdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen, called
}

func TestAuthenticate(t *testing.T) {
	m := newManager(t, middleware.TokenConfig{Secret: "s3cret"})
	token, err := m.Issue(domain.Identity{UserID: "u1", Email: "alice@example.com"})
	require.NoError(t, err)

	mw := middleware.NewAuthMiddleware(m, false)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec, identity, called := serve(mw, req)
		assert.True(t, called)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, identity)
		assert.Equal(t, "u1", identity.UserID)
	})

	t.Run("query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stream?access_token="+token, nil)
		_, identity, called := serve(mw, req)
		assert.True(t, called)
		require.NotNil(t, identity)
		assert.Equal(t, "alice@example.com", identity.Actor())
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
		rec, _, called := serve(mw, req)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec, _, called := serve(mw, req)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthenticate_Anonymous(t *testing.T) {
	m := newManager(t, middleware.TokenConfig{Secret: "s3cret"})
	mw := middleware.NewAuthMiddleware(m, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	rec, identity, called := serve(mw, req)
	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, identity)

	// A presented token is still verified.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec, _, called = serve(mw, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
