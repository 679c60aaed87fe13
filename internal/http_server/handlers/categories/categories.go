package categories

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"expense_service/internal/category"
	"expense_service/internal/http_server/middleware/authn"
	resp "expense_service/internal/lib/api/response"
	sl "expense_service/internal/lib/logger"
	"expense_service/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Name string `json:"name" validate:"required"`
}

type CreateResponse struct {
	resp.Response
	ID int64 `json:"id"`
}

type CategoryService interface {
	Create(ctx context.Context, userID int64, name string) (int64, error)
	List(ctx context.Context, userID int64) ([]models.Category, error)
	Update(ctx context.Context, id, userID int64, name string) error
	Delete(ctx context.Context, id, userID int64) error
}

// NewList returns the caller's categories as a plain array.
func NewList(log *slog.Logger, service CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.categories.NewList"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		principal, ok := authn.FromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		list, err := service.List(r.Context(), principal.UserID)
		if err != nil {
			log.Error("failed to list categories", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, list)
	}
}

func NewCreate(log *slog.Logger, validate *validator.Validate, service CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.categories.NewCreate"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		principal, ok := authn.FromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		req, ok := decodeRequest(w, r, log, validate)
		if !ok {
			return
		}

		id, err := service.Create(r.Context(), principal.UserID, req.Name)
		if err != nil {
			log.Error("failed to create category", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("category created", slog.Int64("id", id))

		render.JSON(w, r, CreateResponse{
			Response: resp.OK(),
			ID:       id,
		})
	}
}

func NewUpdate(log *slog.Logger, validate *validator.Validate, service CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.categories.NewUpdate"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		principal, ok := authn.FromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		id, ok := categoryID(w, r, log)
		if !ok {
			return
		}

		req, ok := decodeRequest(w, r, log, validate)
		if !ok {
			return
		}

		if err := service.Update(r.Context(), id, principal.UserID, req.Name); err != nil {
			writeServiceError(w, r, log, err)
			return
		}

		log.Info("category updated", slog.Int64("id", id))

		render.JSON(w, r, resp.OK())
	}
}

func NewDelete(log *slog.Logger, service CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.categories.NewDelete"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		principal, ok := authn.FromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		id, ok := categoryID(w, r, log)
		if !ok {
			return
		}

		if err := service.Delete(r.Context(), id, principal.UserID); err != nil {
			writeServiceError(w, r, log, err)
			return
		}

		log.Info("category deleted", slog.Int64("id", id))

		render.JSON(w, r, resp.OK())
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate) (Request, bool) {
	var req Request

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("Failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("Failed to decode request"))

		return Request{}, false
	}

	if err := validate.Struct(req); err != nil {
		validateErr := err.(validator.ValidationErrors)

		log.Error("Invalid request", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(validateErr))

		return Request{}, false
	}

	return req, true
}

func categoryID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Warn("invalid category id", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("invalid category id"))

		return 0, false
	}

	return id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, category.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("category not found"))
	case errors.Is(err, category.ErrForbidden):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, resp.Error("forbidden"))
	default:
		log.Error("category operation failed", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("Internal error"))
	}
}
