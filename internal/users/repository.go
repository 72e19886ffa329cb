package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/useradmin/internal/platform/db"
)

// Repository defines persistence operations for user accounts.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Create(ctx context.Context, u NewUser) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, order SortOrder) ([]User, error)
}

// TxRepository exposes the bulk mutations that must run inside a transaction.
type TxRepository interface {
	UpdateStatus(ctx context.Context, ids []int64, status Status) (int64, error)
	Delete(ctx context.Context, ids []int64) (int64, error)
}

const emailConstraint = "users_email_key"

const userColumns = `id, name, email, password, status, last_login, created_at`

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db   dbtx
	pool db.TxBeginner
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool, pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{db: tx, pool: r.pool})
	})
}

// Create inserts a user. A taken email yields ErrDuplicateEmail.
func (r *PGRepository) Create(ctx context.Context, u NewUser) (*User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (name, email, password, last_login) VALUES ($1, $2, $3, $4) RETURNING `+userColumns,
		u.Name, u.Email, u.PasswordHash, u.LastLogin.UTC(),
	)
	user, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err, emailConstraint) {
			return nil, fmt.Errorf("users: create: %w", ErrDuplicateEmail)
		}
		return nil, fmt.Errorf("users: create: %w", err)
	}
	return user, nil
}

// FindByEmail fetches a user by exact email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: find by email: %w", err)
	}
	return user, nil
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: find by id: %w", err)
	}
	return user, nil
}

// TouchLastLogin records a successful login.
func (r *PGRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("users: touch last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all users ordered by last login.
func (r *PGRepository) List(ctx context.Context, order SortOrder) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY last_login DESC, id DESC`
	if order == SortAsc {
		query = `SELECT ` + userColumns + ` FROM users ORDER BY last_login ASC, id ASC`
	}
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("users: list scan: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return users, nil
}

// UpdateStatus sets status on every listed id in one statement.
func (r *PGRepository) UpdateStatus(ctx context.Context, ids []int64, status Status) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE users SET status = $1 WHERE id = ANY($2)`, string(status), ids)
	if err != nil {
		return 0, fmt.Errorf("users: update status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete hard-deletes every listed id in one statement.
func (r *PGRepository) Delete(ctx context.Context, ids []int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("users: delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u      User
		status string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &status, &u.LastLogin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Status = Status(status)
	return &u, nil
}

var (
	_ Repository   = (*PGRepository)(nil)
	_ TxRepository = (*PGRepository)(nil)
)
