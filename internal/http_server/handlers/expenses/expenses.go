package expenses

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"expense_service/internal/expense"
	"expense_service/internal/http_server/middleware/authn"
	resp "expense_service/internal/lib/api/response"
	sl "expense_service/internal/lib/logger"
	"expense_service/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
)

type Request struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        models.Date     `json:"date"`
}

type CreateResponse struct {
	resp.Response
	ID int64 `json:"id"`
}

type ExpenseService interface {
	Create(ctx context.Context, userID int64, expense models.Expense) (int64, error)
	List(ctx context.Context, userID int64) ([]models.Expense, error)
	Update(ctx context.Context, id, userID int64, updated models.Expense) error
	Delete(ctx context.Context, id, userID int64) error
}

func NewCreate(log *slog.Logger, service ExpenseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.expenses.NewCreate"

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

		req, ok := decodeRequest(w, r, log)
		if !ok {
			return
		}

		id, err := service.Create(r.Context(), principal.UserID, req.toModel())
		if err != nil {
			log.Error("failed to create expense", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("expense created", slog.Int64("id", id))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CreateResponse{
			Response: resp.OK(),
			ID:       id,
		})
	}
}

// NewList returns the caller's expenses as a plain array.
func NewList(log *slog.Logger, service ExpenseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.expenses.NewList"

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
			log.Error("failed to list expenses", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, list)
	}
}

func NewUpdate(log *slog.Logger, service ExpenseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.expenses.NewUpdate"

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

		id, ok := expenseID(w, r, log)
		if !ok {
			return
		}

		req, ok := decodeRequest(w, r, log)
		if !ok {
			return
		}

		if err := service.Update(r.Context(), id, principal.UserID, req.toModel()); err != nil {
			writeServiceError(w, r, log, err)
			return
		}

		log.Info("expense updated", slog.Int64("id", id))

		render.JSON(w, r, resp.OK())
	}
}

func NewDelete(log *slog.Logger, service ExpenseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.expenses.NewDelete"

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

		id, ok := expenseID(w, r, log)
		if !ok {
			return
		}

		if err := service.Delete(r.Context(), id, principal.UserID); err != nil {
			writeServiceError(w, r, log, err)
			return
		}

		log.Info("expense deleted", slog.Int64("id", id))

		render.JSON(w, r, resp.OK())
	}
}

func (req Request) toModel() models.Expense {
	return models.Expense{
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger) (Request, bool) {
	var req Request

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("Failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("Failed to decode request"))

		return Request{}, false
	}

	return req, true
}

func expenseID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Warn("invalid expense id", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("invalid expense id"))

		return 0, false
	}

	return id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, expense.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("expense not found"))
	case errors.Is(err, expense.ErrForbidden):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, resp.Error("forbidden"))
	default:
		log.Error("expense operation failed", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("Internal error"))
	}
}
