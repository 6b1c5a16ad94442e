package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// UserService handles signup and email verification. Email delivery itself is
// out of scope; the verification token is returned to the caller.
type UserService struct {
	Users          domain.UserRepository
	Billing        domain.BillingRepository
	BcryptCost     int
	VerifyTokenTTL time.Duration
	BonusAmount    float64
	BonusExpiry    time.Duration
	MaxBonuses     int
}

// NewUserService constructs a UserService.
func NewUserService(u domain.UserRepository, b domain.BillingRepository, bcryptCost int, verifyTTL time.Duration, bonusAmount float64, bonusExpiry time.Duration, maxBonuses int) UserService {
	return UserService{
		Users:          u,
		Billing:        b,
		BcryptCost:     bcryptCost,
		VerifyTokenTTL: verifyTTL,
		BonusAmount:    bonusAmount,
		BonusExpiry:    bonusExpiry,
		MaxBonuses:     maxBonuses,
	}
}

// Signup creates an inactive, unverified user and returns the verification
// token to be delivered out of band.
func (s UserService) Signup(ctx context.Context, email, password string, fullName *string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, "", fmt.Errorf("%w: invalid email", domain.ErrInvalidArgument)
	}
	if len(password) < 8 {
		return domain.User{}, "", fmt.Errorf("%w: password too short", domain.ErrInvalidArgument)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.BcryptCost)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("op=users.signup: %w", err)
	}

	token := uuid.NewString()
	expires := time.Now().UTC().Add(s.VerifyTokenTTL)
	u := domain.User{
		ID:                    domain.UserID(uuid.NewString()),
		Email:                 email,
		HashedPassword:        string(hashed),
		FullName:              fullName,
		VerificationToken:     &token,
		VerificationExpiresAt: &expires,
	}
	if _, err := s.Users.Create(ctx, u); err != nil {
		return domain.User{}, "", err
	}
	obsctx.LoggerFromContext(ctx).Info("signup", "user_id", u.ID)
	return u, token, nil
}

// Verify redeems a verification token: the user is activated and, while the
// process-wide cap allows, receives the signup bonus grant. Hitting the cap
// still verifies the user.
func (s UserService) Verify(ctx context.Context, token string) (domain.User, error) {
	u, err := s.Users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: unknown or expired token", domain.ErrInvalidArgument)
		}
		return domain.User{}, err
	}
	if err := s.Users.MarkVerified(ctx, u.ID); err != nil {
		return domain.User{}, err
	}
	u.EmailVerified = true
	u.IsActive = true
	u.VerificationToken = nil
	u.VerificationExpiresAt = nil

	if s.BonusAmount > 0 {
		var expiresAt *time.Time
		if s.BonusExpiry > 0 {
			t := time.Now().UTC().Add(s.BonusExpiry)
			expiresAt = &t
		}
		granted, err := s.Billing.CreditSignupBonus(ctx, u.ID, s.BonusAmount, s.MaxBonuses, expiresAt)
		if err != nil {
			return domain.User{}, err
		}
		obsctx.LoggerFromContext(ctx).Info("verified", "user_id", u.ID, "bonus_granted", granted)
	}
	return u, nil
}

// Authenticate checks an email/password pair against the stored hash.
func (s UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: bad credentials", domain.ErrInvalidArgument)
		}
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) != nil {
		return domain.User{}, fmt.Errorf("%w: bad credentials", domain.ErrInvalidArgument)
	}
	if !u.IsActive {
		return domain.User{}, fmt.Errorf("%w: account not verified", domain.ErrInvalidArgument)
	}
	return u, nil
}
