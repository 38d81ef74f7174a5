package repositories

import (
	"context"

	"inkflow/internal/domain/models"
)

// UserRepository persists user accounts
type UserRepository interface {
	// Create inserts a new user. Returns ConflictError if the email is taken.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by email. Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
