package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense_service/internal/auth"
	"expense_service/internal/category"
	"expense_service/internal/config"
	"expense_service/internal/expense"
	"expense_service/internal/http_server/handlers/categories"
	"expense_service/internal/http_server/handlers/confirm"
	"expense_service/internal/http_server/handlers/expenses"
	"expense_service/internal/http_server/handlers/login"
	"expense_service/internal/http_server/handlers/register"
	"expense_service/internal/http_server/handlers/resend"
	"expense_service/internal/http_server/middleware/authn"
	rateLimit "expense_service/internal/middleware/ratelimit"
	"expense_service/internal/oauth"
	"expense_service/internal/rabbitmq"
	"expense_service/internal/storage/postgres"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting expense service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	var publisher auth.Publisher
	if cfg.RabbitMQ.URL != "" {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer msgBroker.Close()
		publisher = msgBroker
	} else {
		publisher = rabbitmq.NoopPublisher{Log: log}
	}

	authService := auth.New(
		log,
		storage,
		storage,
		storage,
		publisher,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenTTL,
		cfg.Confirmation.TokenTTL,
		"http://"+cfg.HTTPServer.Address,
	)
	categoryService := category.New(log, storage)
	expenseService := expense.New(log, storage)
	oauthService := oauth.New(log, authService, cfg.OAuth)

	router := setupRouter(log, cfg, authService, categoryService, expenseService, oauthService)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	authService *auth.Auth,
	categoryService *category.Service,
	expenseService *expense.Service,
	oauthService *oauth.Service,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// The gate only binds the principal. Rejection happens on the protected
	// group below, so /api/auth and the oauth routes stay open.
	r.Use(authn.New(log, cfg.JWT.Secret))

	r.Get("/oauth2/authorization/{provider}", oauthService.StartHandler())
	r.Get("/login/oauth2/code/{provider}", oauthService.CallbackHandler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimit.Register()).Post("/register",
				register.New(log, validate, authService),
			)
			r.With(rateLimit.Confirm()).Get("/confirm",
				confirm.New(log, authService),
			)
			r.With(rateLimit.Login()).Post("/login",
				login.New(log, validate, authService),
			)
			r.With(rateLimit.ResendConfirmation()).Post("/resend",
				resend.New(log, validate, authService),
			)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAuth())

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", categories.NewList(log, categoryService))
				r.Post("/", categories.NewCreate(log, validate, categoryService))
				r.Put("/{id}", categories.NewUpdate(log, validate, categoryService))
				r.Delete("/{id}", categories.NewDelete(log, categoryService))
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", expenses.NewList(log, expenseService))
				r.Post("/", expenses.NewCreate(log, expenseService))
				r.Put("/{id}", expenses.NewUpdate(log, expenseService))
				r.Delete("/{id}", expenses.NewDelete(log, expenseService))
			})
		})
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
