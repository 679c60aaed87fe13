package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expense_service/internal/lib/jwt"
	sl "expense_service/internal/lib/logger"
	"expense_service/internal/models"
	"expense_service/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserExists          = errors.New("user already exists")
	ErrEmailNotConfirmed   = errors.New("email not confirmed")
	ErrInvalidConfirmation = errors.New("invalid or expired confirmation token")
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	tokens      ConfirmationTokenStore
	publisher   Publisher
	secret      string
	tokenTTL    time.Duration
	confirmTTL  time.Duration
	baseURL     string
}

type UserSaver interface {
	SaveUser(ctx context.Context, email string, passHash []byte, status models.UserStatus) (uid int64, err error)
	SetUserStatus(ctx context.Context, userID int64, status models.UserStatus) error
	UpsertOAuthUser(ctx context.Context, email string) (models.User, error)
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
}

type ConfirmationTokenStore interface {
	SaveConfirmationToken(ctx context.Context, token models.ConfirmationToken) error
	ConfirmationToken(ctx context.Context, token string) (models.ConfirmationToken, error)
	DeleteConfirmationToken(ctx context.Context, token string) error
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	tokens ConfirmationTokenStore,
	publisher Publisher,
	secret string,
	tokenTTL, confirmTTL time.Duration,
	baseURL string,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		tokens:      tokens,
		publisher:   publisher,
		secret:      secret,
		tokenTTL:    tokenTTL,
		confirmTTL:  confirmTTL,
		baseURL:     baseURL,
	}
}

// Register creates a PENDING user and emails a confirmation link. The email
// publish is best effort: a broker failure is logged, not surfaced, so the
// account is still created and the link can be resent.
func (a *Auth) Register(ctx context.Context, email, password string) (int64, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	log.Info("Registering new user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, email, passHash, models.StatusPending)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("User already exists")

			return 0, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("Failed to save user", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sendConfirmation(ctx, id, email); err != nil {
		log.Error("Failed to send confirmation email", sl.Err(err))
	}

	return id, nil
}

// Confirm consumes a confirmation token and activates its user.
func (a *Auth) Confirm(ctx context.Context, token string) error {
	const op = "auth.Confirm"

	log := a.log.With(slog.String("op", op))

	ct, err := a.tokens.ConfirmationToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			log.Warn("confirmation token not found")
			return ErrInvalidConfirmation
		}

		log.Error("failed to load confirmation token", sl.Err(err))
		return err
	}

	if ct.IsExpired() {
		log.Warn("confirmation token expired", slog.Int64("uid", ct.UserID))
		return ErrInvalidConfirmation
	}

	if err := a.usrSaver.SetUserStatus(ctx, ct.UserID, models.StatusActive); err != nil {
		log.Error("failed to activate user", sl.Err(err))
		return err
	}

	if err := a.tokens.DeleteConfirmationToken(ctx, token); err != nil {
		log.Error("failed to delete confirmation token", sl.Err(err))
		return err
	}

	log.Info("user confirmed", slog.Int64("uid", ct.UserID))

	return nil
}

// * Login проверяет учетные данные и возвращает access токен
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return "", ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return "", err
	}

	if user.Status != models.StatusActive {
		return "", ErrEmailNotConfirmed
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return "", ErrInvalidCredentials
	}

	accessToken, err := jwt.NewToken(user.Email, user.ID, a.tokenTTL, a.secret)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", err
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return accessToken, nil
}

// ResendConfirmation re-issues the confirmation email. It always succeeds for
// unknown or already confirmed emails so the endpoint cannot be used to probe
// which addresses are registered.
func (a *Auth) ResendConfirmation(ctx context.Context, email string) error {
	const op = "auth.ResendConfirmation"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("resend requested for unknown email")
			return nil
		}

		log.Error("failed to get user", sl.Err(err))
		return err
	}

	if user.Status == models.StatusActive {
		log.Info("resend requested for confirmed user", slog.Int64("uid", user.ID))
		return nil
	}

	if err := a.sendConfirmation(ctx, user.ID, user.Email); err != nil {
		log.Error("Failed to send confirmation email", sl.Err(err))
		return err
	}

	return nil
}

// CompleteOAuthLogin resolves or creates the local account for an externally
// authenticated email and issues a session token for it.
func (a *Auth) CompleteOAuthLogin(ctx context.Context, email string) (string, error) {
	const op = "auth.CompleteOAuthLogin"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrSaver.UpsertOAuthUser(ctx, email)
	if err != nil {
		log.Error("failed to upsert oauth user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	accessToken, err := jwt.NewToken(user.Email, user.ID, a.tokenTTL, a.secret)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", err
	}

	log.Info("oauth login completed", slog.Int64("uid", user.ID))

	return accessToken, nil
}

func (a *Auth) sendConfirmation(ctx context.Context, userID int64, email string) error {
	const op = "auth.sendConfirmation"

	now := time.Now()

	ct := models.ConfirmationToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(a.confirmTTL),
	}

	if err := a.tokens.SaveConfirmationToken(ctx, ct); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := models.Message{
		Email: email,
		Link:  fmt.Sprintf("%s/api/auth/confirm?token=%s", a.baseURL, ct.Token),
	}

	if err := a.publisher.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
