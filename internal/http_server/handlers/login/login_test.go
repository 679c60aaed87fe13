package login

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"expense_service/internal/auth"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type mockLoginer struct {
	token string
	err   error
}

func (m *mockLoginer) Login(_ context.Context, _, _ string) (string, error) {
	return m.token, m.err
}

func doRequest(loginer UserLoginer, body string) *httptest.ResponseRecorder {
	handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), validator.New(), loginer)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	return w
}

func TestLogin_Success(t *testing.T) {
	w := doRequest(&mockLoginer{token: "jwt-token"}, `{"email":"user@example.com","password":"pw"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","access_token":"jwt-token"}`, w.Body.String())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	w := doRequest(&mockLoginer{err: auth.ErrInvalidCredentials}, `{"email":"user@example.com","password":"bad"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnconfirmedEmail(t *testing.T) {
	w := doRequest(&mockLoginer{err: auth.ErrEmailNotConfirmed}, `{"email":"user@example.com","password":"pw"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	w := doRequest(&mockLoginer{}, `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
