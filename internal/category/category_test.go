package category

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"expense_service/internal/models"
	"expense_service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCategoryRepo struct {
	categories map[int64]models.Category
	nextID     int64
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: map[int64]models.Category{}, nextID: 1}
}

func (f *fakeCategoryRepo) SaveCategory(_ context.Context, category models.Category) (int64, error) {
	category.ID = f.nextID
	f.nextID++
	f.categories[category.ID] = category
	return category.ID, nil
}

func (f *fakeCategoryRepo) Categories(_ context.Context, userID int64) ([]models.Category, error) {
	out := []models.Category{}
	for _, c := range f.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) CategoryByID(_ context.Context, id int64) (models.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return models.Category{}, storage.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeCategoryRepo) UpdateCategory(_ context.Context, id int64, name string) error {
	c := f.categories[id]
	c.Name = name
	f.categories[id] = c
	return nil
}

func (f *fakeCategoryRepo) DeleteCategory(_ context.Context, id int64) error {
	delete(f.categories, id)
	return nil
}

func newTestService() (*Service, *fakeCategoryRepo) {
	repo := newFakeCategoryRepo()
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), repo), repo
}

func TestCreate_AttachesOwner(t *testing.T) {
	svc, repo := newTestService()

	id, err := svc.Create(context.Background(), 7, "Groceries")
	require.NoError(t, err)

	assert.Equal(t, int64(7), repo.categories[id].UserID)
	assert.Equal(t, "Groceries", repo.categories[id].Name)
}

func TestList_ScopedByOwner(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), 1, "Groceries")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 2, "Travel")
	require.NoError(t, err)

	list, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Groceries", list[0].Name)
}

func TestUpdate_OwnerSucceeds(t *testing.T) {
	svc, repo := newTestService()

	id, err := svc.Create(context.Background(), 1, "Groceries")
	require.NoError(t, err)

	require.NoError(t, svc.Update(context.Background(), id, 1, "Food"))
	assert.Equal(t, "Food", repo.categories[id].Name)
}

func TestUpdate_NonOwnerForbiddenNoMutation(t *testing.T) {
	svc, repo := newTestService()

	id, err := svc.Create(context.Background(), 1, "Groceries")
	require.NoError(t, err)

	err = svc.Update(context.Background(), id, 2, "Hijacked")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "Groceries", repo.categories[id].Name)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Update(context.Background(), 999, 1, "Anything")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_NonOwnerForbiddenNoMutation(t *testing.T) {
	svc, repo := newTestService()

	id, err := svc.Create(context.Background(), 1, "Groceries")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), id, 2)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, repo.categories, id)
}

func TestDelete_OwnerSucceeds(t *testing.T) {
	svc, repo := newTestService()

	id, err := svc.Create(context.Background(), 1, "Groceries")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), id, 1))
	assert.NotContains(t, repo.categories, id)
}

func TestDelete_NotFound(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Delete(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
