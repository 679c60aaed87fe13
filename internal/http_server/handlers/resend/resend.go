package resend

import (
	"context"
	"log/slog"
	"net/http"

	resp "expense_service/internal/lib/api/response"
	sl "expense_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type Response struct {
	resp.Response
}

type ConfirmationResender interface {
	ResendConfirmation(ctx context.Context, email string) error
}

// New re-sends the confirmation email. The response is 200 regardless of
// whether the email exists or is already confirmed, so the endpoint cannot
// be used to enumerate accounts.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	resender ConfirmationResender,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resend.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		if err := resender.ResendConfirmation(r.Context(), req.Email); err != nil {
			log.Error("failed to resend confirmation", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{Response: resp.OK()})
	}
}
