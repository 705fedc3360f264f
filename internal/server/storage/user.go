package storage

import (
	"context"

	"github.com/iudanet/yardsync/internal/models"
)

//go:generate moq -out user_mock.go . UserStorage

// UserStorage defines interface for operator persistence
type UserStorage interface {
	// CreateUser creates a new operator.
	// Returns ErrUserAlreadyExists if the username is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername retrieves operator by username
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// UpdateUser replaces the password hash and role of an operator
	// Returns ErrUserNotFound if user doesn't exist
	UpdateUser(ctx context.Context, user *models.User) error

	// ListUsers returns every operator ordered by username
	ListUsers(ctx context.Context) ([]*models.User, error)
}
