package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/NordCoder/studybuddy/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserInsert = `
INSERT INTO users (first_name, last_name, email, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at;`

	qUserByID = `
SELECT id, first_name, last_name, email, password_hash, created_at
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT id, first_name, last_name, email, password_hash, created_at
FROM users
WHERE email = $1;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var id int64
	if err := r.db.Pool.QueryRow(ctx, qUserInsert, u.FirstName, u.LastName, u.Email, u.PasswordHash).
		Scan(&id, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("user insert: %w", err)
	}
	u.ID = strconv.FormatInt(id, 10)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, user.ErrNotFound
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.Pool.QueryRow(ctx, qUserByID, n), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.Pool.QueryRow(ctx, qUserByEmail, email), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUser(row pgx.Row, out *user.User) error {
	var id int64
	if err := row.Scan(&id, &out.FirstName, &out.LastName, &out.Email, &out.PasswordHash, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	out.ID = strconv.FormatInt(id, 10)
	return nil
}
