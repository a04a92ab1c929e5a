package auth

import "context"

// Repository defines the persistence operations for User accounts.
type Repository interface {
	// CreateUser persists a new account. A duplicate email surfaces as
	// a Conflict.
	CreateUser(ctx context.Context, user User) (User, error)

	// GetUserByEmail fetches an account by its unique email address.
	// NotFound when no such account exists.
	GetUserByEmail(ctx context.Context, email string) (User, error)
}
