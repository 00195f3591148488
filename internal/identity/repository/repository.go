package repository

import (
	"context"

	"propertydesk/backend/internal/identity/domain"
)

// Repository defines persistence for users.
type Repository interface {
	// GetByEmail returns the user for email, or nil if not found.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
