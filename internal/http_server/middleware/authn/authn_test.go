package authn

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"expense_service/internal/lib/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "testsecrettestsecrettestsecret12"

func gateChain(requireAuth bool, capture *Principal) http.Handler {
	var next http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := FromContext(r.Context()); ok && capture != nil {
			*capture = p
		}
		w.WriteHeader(http.StatusOK)
	})

	if requireAuth {
		next = RequireAuth()(next)
	}

	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), testSecret)(next)
}

func TestGate_ValidTokenBindsPrincipal(t *testing.T) {
	token, err := jwt.NewToken("user@example.com", 42, time.Hour, testSecret)
	require.NoError(t, err)

	var got Principal
	handler := gateChain(true, &got)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user@example.com", got.Email)
	assert.Equal(t, int64(42), got.UserID)
}

func TestGate_MissingHeaderRejectedOnProtectedRoute(t *testing.T) {
	handler := gateChain(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"status":"error","error":"Unauthorized"}`, w.Body.String())
}

func TestGate_BadTokenRejectedOnProtectedRoute(t *testing.T) {
	handler := gateChain(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGate_ExpiredTokenRejectedOnProtectedRoute(t *testing.T) {
	token, err := jwt.NewToken("user@example.com", 42, -time.Minute, testSecret)
	require.NoError(t, err)

	handler := gateChain(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGate_BadTokenPassesThroughOnOpenRoute(t *testing.T) {
	// Without RequireAuth the gate never rejects, it only skips binding.
	handler := gateChain(false, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGate_NonBearerSchemeIgnored(t *testing.T) {
	handler := gateChain(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
