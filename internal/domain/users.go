package domain

import (
	"context"
	"time"
)

// User lives in the users store. Email delivery is out of scope; the
// verification token and expiry are persisted so a delivered link can be
// redeemed.
type User struct {
	ID                    UserID
	Email                 string
	HashedPassword        string
	FullName              *string
	IsActive              bool
	IsSuperuser           bool
	EmailVerified         bool
	VerificationToken     *string
	VerificationExpiresAt *time.Time
	DeletedAt             *time.Time
}

// UserRepository persists users.
type UserRepository interface {
	Create(ctx context.Context, u User) (UserID, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByVerificationToken(ctx context.Context, token string) (User, error)
	// MarkVerified activates the user and clears the verification token.
	MarkVerified(ctx context.Context, id UserID) error
}
