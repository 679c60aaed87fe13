package category

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
	ErrNotFound  = errors.New("category not found")
	ErrForbidden = errors.New("category belongs to another user")
)

type Service struct {
	log     *slog.Logger
	catRepo CategoryRepo
}

type CategoryRepo interface {
	SaveCategory(ctx context.Context, category models.Category) (int64, error)
	Categories(ctx context.Context, userID int64) ([]models.Category, error)
	CategoryByID(ctx context.Context, id int64) (models.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) error
	DeleteCategory(ctx context.Context, id int64) error
}

func New(log *slog.Logger, catRepo CategoryRepo) *Service {
	return &Service{
		log:     log,
		catRepo: catRepo,
	}
}

// Create attaches the authenticated user as owner before persisting.
func (s *Service) Create(ctx context.Context, userID int64, name string) (int64, error) {
	const op = "category.Create"

	id, err := s.catRepo.SaveCategory(ctx, models.Category{
		Name:   name,
		UserID: userID,
	})
	if err != nil {
		s.log.Error("failed to save category", slog.String("op", op), sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]models.Category, error) {
	const op = "category.List"

	categories, err := s.catRepo.Categories(ctx, userID)
	if err != nil {
		s.log.Error("failed to list categories", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}

// Update renames the category only when it belongs to userID.
func (s *Service) Update(ctx context.Context, id, userID int64, name string) error {
	const op = "category.Update"

	existing, err := s.ownedCategory(ctx, op, id, userID)
	if err != nil {
		return err
	}

	if err := s.catRepo.UpdateCategory(ctx, existing.ID, name); err != nil {
		s.log.Error("failed to update category", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	const op = "category.Delete"

	existing, err := s.ownedCategory(ctx, op, id, userID)
	if err != nil {
		return err
	}

	if err := s.catRepo.DeleteCategory(ctx, existing.ID); err != nil {
		s.log.Error("failed to delete category", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ownedCategory resolves the category and rejects callers that do not own it.
// The ownership check happens before any mutation.
func (s *Service) ownedCategory(ctx context.Context, op string, id, userID int64) (models.Category, error) {
	existing, err := s.catRepo.CategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return models.Category{}, ErrNotFound
		}

		s.log.Error("failed to load category", slog.String("op", op), sl.Err(err))
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	if existing.UserID != userID {
		s.log.Warn("cross-user category access rejected",
			slog.String("op", op),
			slog.Int64("category_id", id),
			slog.Int64("uid", userID),
		)
		return models.Category{}, ErrForbidden
	}

	return existing, nil
}
