package confirm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"expense_service/internal/auth"
	resp "expense_service/internal/lib/api/response"
	sl "expense_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
}

type UserConfirmer interface {
	Confirm(ctx context.Context, token string) error
}

func New(
	log *slog.Logger,
	confirmer UserConfirmer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.confirm.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")
		if token == "" {
			log.Warn("missing confirmation token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing token"))

			return
		}

		if err := confirmer.Confirm(r.Context(), token); err != nil {
			if errors.Is(err, auth.ErrInvalidConfirmation) {
				log.Warn("invalid confirmation token")

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("invalid or expired token"))

				return
			}

			log.Error("failed to confirm user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("email confirmed successfully")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
