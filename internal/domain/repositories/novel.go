package repositories

import (
	"context"

	"inkflow/internal/domain/models"
)

// NovelRepository persists novels
type NovelRepository interface {
	// Create inserts a new novel and fills in store-generated fields.
	Create(ctx context.Context, novel *models.Novel) error

	// GetByID retrieves a novel by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*models.Novel, error)

	// ListByUser retrieves all novels owned by a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Novel, error)

	// Delete removes a novel. Chapters, options and recorded choices go with
	// it through foreign key cascade. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}
