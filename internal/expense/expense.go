package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "expense_service/internal/lib/logger"
	"expense_service/internal/models"
	"expense_service/internal/storage"
)

var (
	ErrNotFound  = errors.New("expense not found")
	ErrForbidden = errors.New("expense belongs to another user")
)

type Service struct {
	log     *slog.Logger
	expRepo ExpenseRepo
}

type ExpenseRepo interface {
	SaveExpense(ctx context.Context, expense models.Expense) (int64, error)
	Expenses(ctx context.Context, userID int64) ([]models.Expense, error)
	ExpenseByID(ctx context.Context, id int64) (models.Expense, error)
	UpdateExpense(ctx context.Context, expense models.Expense) error
	DeleteExpense(ctx context.Context, id int64) error
}

func New(log *slog.Logger, expRepo ExpenseRepo) *Service {
	return &Service{
		log:     log,
		expRepo: expRepo,
	}
}

func (s *Service) Create(ctx context.Context, userID int64, expense models.Expense) (int64, error) {
	const op = "expense.Create"

	expense.UserID = userID

	id, err := s.expRepo.SaveExpense(ctx, expense)
	if err != nil {
		s.log.Error("failed to save expense", slog.String("op", op), sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]models.Expense, error) {
	const op = "expense.List"

	expenses, err := s.expRepo.Expenses(ctx, userID)
	if err != nil {
		s.log.Error("failed to list expenses", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return expenses, nil
}

// Update replaces amount, description, category and date of an owned expense.
func (s *Service) Update(ctx context.Context, id, userID int64, updated models.Expense) error {
	const op = "expense.Update"

	existing, err := s.ownedExpense(ctx, op, id, userID)
	if err != nil {
		return err
	}

	existing.Amount = updated.Amount
	existing.Description = updated.Description
	existing.Category = updated.Category
	existing.Date = updated.Date

	if err := s.expRepo.UpdateExpense(ctx, existing); err != nil {
		s.log.Error("failed to update expense", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	const op = "expense.Delete"

	existing, err := s.ownedExpense(ctx, op, id, userID)
	if err != nil {
		return err
	}

	if err := s.expRepo.DeleteExpense(ctx, existing.ID); err != nil {
		s.log.Error("failed to delete expense", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) ownedExpense(ctx context.Context, op string, id, userID int64) (models.Expense, error) {
	existing, err := s.expRepo.ExpenseByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrExpenseNotFound) {
			return models.Expense{}, ErrNotFound
		}

		s.log.Error("failed to load expense", slog.String("op", op), sl.Err(err))
		return models.Expense{}, fmt.Errorf("%s: %w", op, err)
	}

	if existing.UserID != userID {
		s.log.Warn("cross-user expense access rejected",
			slog.String("op", op),
			slog.Int64("expense_id", id),
			slog.Int64("uid", userID),
		)
		return models.Expense{}, ErrForbidden
	}

	return existing, nil
}
