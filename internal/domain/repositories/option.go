package repositories

import (
	"context"

	"inkflow/internal/domain/models"
)

// OptionRepository persists chapter options
type OptionRepository interface {
	// CreateBatch inserts all options for a chapter. Called inside the
	// completion transaction so options and final content land together.
	CreateBatch(ctx context.Context, chapterID string, options []models.Option) error

	// ListByChapter retrieves a chapter's options ordered by option_order.
	ListByChapter(ctx context.Context, chapterID string) ([]models.Option, error)

	// GetByID retrieves an option by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*models.Option, error)
}

// UserChoiceRepository records which option a user picked
type UserChoiceRepository interface {
	Create(ctx context.Context, choice *models.UserChoice) error

	// ListByUser retrieves a user's choices, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.UserChoice, error)
}
