package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-orders/pkg/auth"
	"github.com/angelmondragon/storefront-orders/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jwtCfg = config.JWTConfig{Secret: "secret", Issuer: "storefront"}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuthRejectsMissingToken(t *testing.T) {
	var called bool
	resp := httptest.NewRecorder()
	AdminAuth(jwtCfg, nil)(okHandler(&called)).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.False(t, called)
}

func TestAdminAuthRejectsInvalidToken(t *testing.T) {
	var called bool
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	AdminAuth(jwtCfg, nil)(okHandler(&called)).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.False(t, called)
}

func TestAdminAuthRejectsNonAdminRole(t *testing.T) {
	token, err := auth.MintToken(jwtCfg, time.Now(), "clerk", "support", time.Hour)
	require.NoError(t, err)

	var called bool
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	AdminAuth(jwtCfg, nil)(okHandler(&called)).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.False(t, called)
}

func TestAdminAuthAllowsAdmin(t *testing.T) {
	token, err := auth.MintToken(jwtCfg, time.Now(), "ops@example.com", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	var subject, role string
	handler := AdminAuth(jwtCfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = SubjectFromContext(r.Context())
		role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ops@example.com", subject)
	assert.Equal(t, auth.RoleAdmin, role)
}
