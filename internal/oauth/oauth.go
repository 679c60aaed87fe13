package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"expense_service/internal/config"
	resp "expense_service/internal/lib/api/response"
	sl "expense_service/internal/lib/logger"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

var ErrNoEmail = errors.New("email not found in OAuth2 provider")

const stateCookie = "oauth_state"

// TokenIssuer resolves the local account for an email and issues a session token.
type TokenIssuer interface {
	CompleteOAuthLogin(ctx context.Context, email string) (string, error)
}

// Provider pairs an oauth2 client config with the provider-specific way of
// extracting the account email from its profile API.
type Provider struct {
	Config     *oauth2.Config
	FetchEmail func(ctx context.Context, client *http.Client) (string, error)
}

type Service struct {
	log         *slog.Logger
	issuer      TokenIssuer
	providers   map[string]Provider
	redirectURI string
}

func New(log *slog.Logger, issuer TokenIssuer, cfg config.OAuth) *Service {
	providers := make(map[string]Provider)

	if cfg.Google.ClientID != "" {
		providers["google"] = Provider{
			Config: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  cfg.Google.CallbackURL,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
			FetchEmail: fetchGoogleEmail,
		}
	}

	if cfg.GitHub.ClientID != "" {
		providers["github"] = Provider{
			Config: &oauth2.Config{
				ClientID:     cfg.GitHub.ClientID,
				ClientSecret: cfg.GitHub.ClientSecret,
				RedirectURL:  cfg.GitHub.CallbackURL,
				Scopes:       []string{"user:email"},
				Endpoint:     github.Endpoint,
			},
			FetchEmail: fetchGitHubEmail,
		}
	}

	return &Service{
		log:         log,
		issuer:      issuer,
		providers:   providers,
		redirectURI: cfg.RedirectURI,
	}
}

// StartHandler kicks off the provider flow: random state bound to a cookie,
// then a redirect to the provider's consent page.
func (s *Service) StartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "oauth.StartHandler"

		log := s.log.With(slog.String("op", op))

		provider, ok := s.providers[chi.URLParam(r, "provider")]
		if !ok {
			http.NotFound(w, r)
			return
		}

		state, err := newState()
		if err != nil {
			log.Error("failed to generate state", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    state,
			Path:     "/",
			MaxAge:   int((10 * time.Minute).Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, provider.Config.AuthCodeURL(state), http.StatusFound)
	}
}

// CallbackHandler finishes the provider flow: verify state, exchange the code,
// fetch the profile email, resolve the local user and redirect the browser to
// the configured frontend callback with the session token appended.
func (s *Service) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "oauth.CallbackHandler"

		log := s.log.With(slog.String("op", op))

		provider, ok := s.providers[chi.URLParam(r, "provider")]
		if !ok {
			http.NotFound(w, r)
			return
		}

		cookie, err := r.Cookie(stateCookie)
		if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
			log.Warn("state mismatch on oauth callback")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid state"))

			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing code"))

			return
		}

		token, err := provider.Config.Exchange(r.Context(), code)
		if err != nil {
			log.Error("failed to exchange code", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("failed to exchange authorization code"))

			return
		}

		email, err := provider.FetchEmail(r.Context(), provider.Config.Client(r.Context(), token))
		if err != nil {
			if errors.Is(err, ErrNoEmail) {
				log.Warn("oauth profile has no email")

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Email not found in OAuth2 provider"))

				return
			}

			log.Error("failed to fetch provider profile", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("failed to fetch provider profile"))

			return
		}

		sessionToken, err := s.issuer.CompleteOAuthLogin(r.Context(), email)
		if err != nil {
			log.Error("failed to complete oauth login", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		http.Redirect(w, r, fmt.Sprintf("%s?token=%s", s.redirectURI, sessionToken), http.StatusFound)
	}
}

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubUserURL     = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"
)

func fetchGoogleEmail(ctx context.Context, client *http.Client) (string, error) {
	body, err := getJSON(ctx, client, googleUserInfoURL)
	if err != nil {
		return "", err
	}

	var profile struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", err
	}

	if profile.Email == "" {
		return "", ErrNoEmail
	}

	return profile.Email, nil
}

// fetchGitHubEmail reads the profile email, falling back to the primary
// address from /user/emails when the profile one is private.
func fetchGitHubEmail(ctx context.Context, client *http.Client) (string, error) {
	body, err := getJSON(ctx, client, githubUserURL)
	if err != nil {
		return "", err
	}

	var profile struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", err
	}

	if profile.Email != "" {
		return profile.Email, nil
	}

	body, err = getJSON(ctx, client, githubEmailsURL)
	if err != nil {
		return "", err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Email != "" {
			return e.Email, nil
		}
	}

	return "", ErrNoEmail
}

func getJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request failed: %s", res.Status)
	}

	return io.ReadAll(res.Body)
}

func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
