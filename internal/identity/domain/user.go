package domain

import "time"

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is a platform account. PasswordHash is a bcrypt hash; the raw
// password never leaves the login handler.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
