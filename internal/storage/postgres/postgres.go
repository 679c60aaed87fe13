package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expense_service/internal/config"
	"expense_service/internal/models"
	"expense_service/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, email string, passHash []byte, status models.UserStatus) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (email, password_hash, status)
		VALUES ($1, $2, $3)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, email, string(passHash), status).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

// UpsertOAuthUser resolves a user by email, creating an ACTIVE account with an
// empty password hash on first login. The upsert is atomic, so two concurrent
// first logins for the same email both land on the same row.
func (r *PostgresRepo) UpsertOAuthUser(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.UpsertOAuthUser"

	query := `
		INSERT INTO users (email, password_hash, status)
		VALUES ($1, '', $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, password_hash, status;
	`

	var u models.User
	err := r.pool.QueryRow(ctx, query, email, models.StatusActive).Scan(
		&u.ID,
		&u.Email,
		&u.PassHash,
		&u.Status,
	)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, email, password_hash, status
		FROM users
		WHERE email = $1;
	`

	row := r.pool.QueryRow(ctx, query, email)

	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PassHash,
		&u.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, err
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	query := `
		SELECT id, email, password_hash, status
		FROM users
		WHERE id = $1;
	`

	row := r.pool.QueryRow(ctx, query, id)

	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PassHash,
		&u.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, err
}

func (r *PostgresRepo) SetUserStatus(ctx context.Context, userID int64, status models.UserStatus) error {
	query := `UPDATE users SET status = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, status, userID)

	return err
}

func (r *PostgresRepo) SaveConfirmationToken(ctx context.Context, token models.ConfirmationToken) error {
	const query = `
		INSERT INTO confirmation_tokens (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, token.Token, token.UserID, token.CreatedAt, token.ExpiresAt)
	return err
}

func (r *PostgresRepo) ConfirmationToken(ctx context.Context, token string) (models.ConfirmationToken, error) {
	const query = `
		SELECT token, user_id, created_at, expires_at
		FROM confirmation_tokens
		WHERE token = $1;
	`

	var t models.ConfirmationToken
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&t.Token,
		&t.UserID,
		&t.CreatedAt,
		&t.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ConfirmationToken{}, storage.ErrTokenNotFound
	}

	return t, err
}

func (r *PostgresRepo) DeleteConfirmationToken(ctx context.Context, token string) error {
	query := `DELETE FROM confirmation_tokens WHERE token = $1`

	_, err := r.pool.Exec(ctx, query, token)

	return err
}

func (r *PostgresRepo) SaveCategory(ctx context.Context, category models.Category) (int64, error) {
	const op = "storage.postgres.SaveCategory"

	query := `
		INSERT INTO categories (name, user_id)
		VALUES ($1, $2)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, category.Name, category.UserID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// Categories returns the user's categories, scoped by owner at the query level.
func (r *PostgresRepo) Categories(ctx context.Context, userID int64) ([]models.Category, error) {
	const op = "storage.postgres.Categories"

	query := `
		SELECT id, name, user_id
		FROM categories
		WHERE user_id = $1
		ORDER BY id;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	categories := []models.Category{}

	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.UserID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		categories = append(categories, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return categories, nil
}

func (r *PostgresRepo) CategoryByID(ctx context.Context, id int64) (models.Category, error) {
	query := `
		SELECT id, name, user_id
		FROM categories
		WHERE id = $1;
	`

	var c models.Category
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Category{}, storage.ErrCategoryNotFound
	}

	return c, err
}

func (r *PostgresRepo) UpdateCategory(ctx context.Context, id int64, name string) error {
	query := `UPDATE categories SET name = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, name, id)

	return err
}

func (r *PostgresRepo) DeleteCategory(ctx context.Context, id int64) error {
	query := `DELETE FROM categories WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)

	return err
}

func (r *PostgresRepo) SaveExpense(ctx context.Context, expense models.Expense) (int64, error) {
	const op = "storage.postgres.SaveExpense"

	query := `
		INSERT INTO expenses (amount, description, category, expense_date, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		expense.Amount.String(),
		expense.Description,
		expense.Category,
		expense.Date.Time,
		expense.UserID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) Expenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	const op = "storage.postgres.Expenses"

	query := `
		SELECT id, amount::text, description, category, expense_date, user_id
		FROM expenses
		WHERE user_id = $1
		ORDER BY expense_date DESC, id DESC;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	expenses := []models.Expense{}

	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		expenses = append(expenses, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return expenses, nil
}

func (r *PostgresRepo) ExpenseByID(ctx context.Context, id int64) (models.Expense, error) {
	query := `
		SELECT id, amount::text, description, category, expense_date, user_id
		FROM expenses
		WHERE id = $1;
	`

	e, err := scanExpense(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Expense{}, storage.ErrExpenseNotFound
	}

	return e, err
}

func (r *PostgresRepo) UpdateExpense(ctx context.Context, expense models.Expense) error {
	const query = `
		UPDATE expenses
		SET amount = $1, description = $2, category = $3, expense_date = $4
		WHERE id = $5
	`

	_, err := r.pool.Exec(ctx, query,
		expense.Amount.String(),
		expense.Description,
		expense.Category,
		expense.Date.Time,
		expense.ID,
	)
	return err
}

func (r *PostgresRepo) DeleteExpense(ctx context.Context, id int64) error {
	query := `DELETE FROM expenses WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)

	return err
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func scanExpense(row pgx.Row) (models.Expense, error) {
	var (
		e      models.Expense
		amount string
		date   time.Time
	)

	err := row.Scan(&e.ID, &amount, &e.Description, &e.Category, &date, &e.UserID)
	if err != nil {
		return models.Expense{}, err
	}

	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return models.Expense{}, err
	}
	e.Date = models.Date{Time: date}

	return e, nil
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
