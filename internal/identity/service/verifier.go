package service

import (
	"context"
	"errors"
	"strings"

	"propertydesk/backend/internal/identity/domain"
	"propertydesk/backend/internal/security"
)

// Sentinel errors for the verifier; the login handler maps them to HTTP codes.
var (
	// ErrInvalidCredentials covers unknown email, wrong password, and
	// suspended accounts alike so the response never reveals which.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserRepo is the minimal user repository needed by the verifier.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Verifier checks login credentials against stored bcrypt hashes.
type Verifier struct {
	users  UserRepo
	hasher *security.Hasher
}

// NewVerifier returns a Verifier with the given dependencies.
func NewVerifier(users UserRepo, hasher *security.Hasher) *Verifier {
	return &Verifier{users: users, hasher: hasher}
}

// Verify authenticates email/password and returns the matching active user.
func (v *Verifier) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != domain.UserStatusActive || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := v.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
