package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

// UserRepo persists users in the users store.
type UserRepo struct{ Pool PgxPool }

// NewUserRepo constructs a UserRepo.
func NewUserRepo(p PgxPool) *UserRepo { return &UserRepo{Pool: p} }

const userCols = `id, email, hashed_password, full_name, is_active, is_superuser,
	email_verified, verification_token, verification_expires_at, deleted_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.IsActive,
		&u.IsSuperuser, &u.EmailVerified, &u.VerificationToken, &u.VerificationExpiresAt, &u.DeletedAt)
	return u, err
}

// Create inserts a user; a duplicate email is ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.UserID, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Create")
	defer span.End()

	q := `INSERT INTO users (id, email, hashed_password, full_name, is_active, is_superuser,
			email_verified, verification_token, verification_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.Pool.Exec(ctx, q, u.ID, u.Email, u.HashedPassword, u.FullName, u.IsActive,
		u.IsSuperuser, u.EmailVerified, u.VerificationToken, u.VerificationExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("op=users.create: email taken: %w", domain.ErrConflict)
		}
		return "", fmt.Errorf("op=users.create: %w", err)
	}
	return u.ID, nil
}

// FindByEmail loads a non-deleted user by email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	u, err := scanUser(r.Pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("op=users.find_by_email: %w", domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("op=users.find_by_email: %w", err)
	}
	return u, nil
}

// FindByVerificationToken loads the user holding an unexpired token.
func (r *UserRepo) FindByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	q := `SELECT ` + userCols + ` FROM users
		WHERE verification_token = $1 AND verification_expires_at > now() AND deleted_at IS NULL`
	u, err := scanUser(r.Pool.QueryRow(ctx, q, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("op=users.find_by_token: %w", domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("op=users.find_by_token: %w", err)
	}
	return u, nil
}

// MarkVerified activates the user and clears the token.
func (r *UserRepo) MarkVerified(ctx context.Context, id domain.UserID) error {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.MarkVerified")
	defer span.End()

	q := `UPDATE users SET email_verified = TRUE, is_active = TRUE,
			verification_token = NULL, verification_expires_at = NULL
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.Pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("op=users.mark_verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=users.mark_verified: %w", domain.ErrNotFound)
	}
	return nil
}
