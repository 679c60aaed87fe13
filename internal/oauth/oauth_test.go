package oauth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"expense_service/internal/config"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type stubIssuer struct {
	token    string
	err      error
	gotEmail string
}

func (s *stubIssuer) CompleteOAuthLogin(_ context.Context, email string) (string, error) {
	s.gotEmail = email
	return s.token, s.err
}

func testConfig() config.OAuth {
	return config.OAuth{
		RedirectURI: "http://localhost:3000/oauth2/callback",
		Google: config.OAuthProvider{
			ClientID:     "google-client",
			ClientSecret: "google-secret",
			CallbackURL:  "http://localhost:8080/login/oauth2/code/google",
		},
	}
}

func testRouter(svc *Service) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/oauth2/authorization/{provider}", svc.StartHandler())
	r.Get("/login/oauth2/code/{provider}", svc.CallbackHandler())
	return r
}

func TestStart_UnknownProvider(t *testing.T) {
	svc := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &stubIssuer{}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorization/unknown", nil)
	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStart_RedirectsWithStateCookie(t *testing.T) {
	svc := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &stubIssuer{}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorization/google", nil)
	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)

	var state string
	for _, c := range w.Result().Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state, "state cookie must be set")

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "google-client", loc.Query().Get("client_id"))
	assert.Equal(t, state, loc.Query().Get("state"))
}

func TestCallback_StateMismatch(t *testing.T) {
	svc := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &stubIssuer{}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/google?code=abc&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "genuine"})
	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallback_MissingStateCookie(t *testing.T) {
	svc := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &stubIssuer{}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/google?code=abc&state=genuine", nil)
	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// full happy path against a fake provider token endpoint
func TestCallback_IssuesTokenAndRedirects(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer"}`))
	}))
	defer tokenServer.Close()

	issuer := &stubIssuer{token: "session-jwt"}
	svc := New(slog.New(slog.NewTextHandler(io.Discard, nil)), issuer, testConfig())
	svc.providers["google"] = Provider{
		Config: &oauth2.Config{
			ClientID:     "google-client",
			ClientSecret: "google-secret",
			Endpoint:     oauth2.Endpoint{AuthURL: tokenServer.URL, TokenURL: tokenServer.URL},
		},
		FetchEmail: func(_ context.Context, _ *http.Client) (string, error) {
			return "social@example.com", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/google?code=abc&state=genuine", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "genuine"})
	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "social@example.com", issuer.gotEmail)
	assert.Equal(t, "http://localhost:3000/oauth2/callback?token=session-jwt", w.Header().Get("Location"))
}

func TestCallback_MissingEmailFails400(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer"}`))
	}))
	defer tokenServer.Close()

	svc := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &stubIssuer{token: "unused"}, testConfig())
	svc.providers["google"] = Provider{
		Config: &oauth2.Config{
			Endpoint: oauth2.Endpoint{AuthURL: tokenServer.URL, TokenURL: tokenServer.URL},
		},
		FetchEmail: func(_ context.Context, _ *http.Client) (string, error) {
			return "", ErrNoEmail
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/google?code=abc&state=genuine", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "genuine"})
	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email not found in OAuth2 provider")
}
