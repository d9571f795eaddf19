package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authProbe(t *testing.T, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	w := httptest.NewRecorder()
	AuthMiddleware(next).ServeHTTP(w, r)
	return w
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/streaks", nil)
	w := authProbe(t, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, json.Valid(w.Body.Bytes()))
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/streaks", nil)
	r.Header.Set("Authorization", "Token abc")
	w := authProbe(t, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, json.Valid(w.Body.Bytes()))
}

func TestAuthMiddlewareGarbageTokenStaysValidJSON(t *testing.T) {
	// Verification errors carry arbitrary text (including quotes); the
	// response body must stay well-formed JSON with a fixed message.
	r := httptest.NewRequest(http.MethodPost, "/api/v1/streaks", nil)
	r.Header.Set("Authorization", `Bearer not"a"jwt`)
	w := authProbe(t, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.True(t, json.Valid(w.Body.Bytes()))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid token", resp["error"])
}

func TestIsOwner(t *testing.T) {
	ctx := context.WithValue(context.Background(), SessionUserKey, "123456789012345678")

	assert.True(t, IsOwner(ctx, "123456789012345678"))
	assert.False(t, IsOwner(ctx, "999999999999999999"))
	assert.False(t, IsOwner(context.Background(), "123456789012345678"))
}
