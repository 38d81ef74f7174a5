package service

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
	"inkflow/internal/domain/repositories"
)

// NovelService manages user-owned story worlds.
type NovelService struct {
	novels repositories.NovelRepository
	logger *slog.Logger
}

// NewNovelService creates a novel service.
func NewNovelService(novels repositories.NovelRepository, logger *slog.Logger) *NovelService {
	return &NovelService{novels: novels, logger: logger}
}

// CreateNovelInput is the payload for novel creation. Genre selects the
// prompt set; unknown genres fall back to the default prompts.
type CreateNovelInput struct {
	Title             string `json:"title"`
	Genre             string `json:"genre"`
	Description       string `json:"description"`
	BackgroundSetting string `json:"background_setting"`
	CharacterSetting  string `json:"character_setting"`
}

// Validate checks field constraints.
func (in CreateNovelInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Genre, validation.Required, validation.Length(1, 50)),
		validation.Field(&in.Description, validation.Length(0, 2000)),
		validation.Field(&in.BackgroundSetting, validation.Length(0, 10000)),
		validation.Field(&in.CharacterSetting, validation.Length(0, 10000)),
	)
}

// Create makes a new novel owned by the user.
func (s *NovelService) Create(ctx context.Context, userID string, in CreateNovelInput) (*models.Novel, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	novel := &models.Novel{
		UserID:            userID,
		Title:             in.Title,
		Genre:             in.Genre,
		Description:       in.Description,
		BackgroundSetting: in.BackgroundSetting,
		CharacterSetting:  in.CharacterSetting,
	}
	if err := s.novels.Create(ctx, novel); err != nil {
		return nil, err
	}

	s.logger.Info("novel created", "novel_id", novel.ID, "user_id", userID)
	return novel, nil
}

// Get retrieves a novel the user owns.
func (s *NovelService) Get(ctx context.Context, novelID, userID string) (*models.Novel, error) {
	novel, err := s.novels.GetByID(ctx, novelID)
	if err != nil {
		return nil, err
	}
	if novel.UserID != userID {
		return nil, fmt.Errorf("%w: novel belongs to another user", domain.ErrForbidden)
	}
	return novel, nil
}

// List retrieves all novels the user owns, newest first.
func (s *NovelService) List(ctx context.Context, userID string) ([]models.Novel, error) {
	return s.novels.ListByUser(ctx, userID)
}

// Delete removes a novel the user owns, cascading to its chapters, options
// and recorded choices.
func (s *NovelService) Delete(ctx context.Context, novelID, userID string) error {
	novel, err := s.novels.GetByID(ctx, novelID)
	if err != nil {
		return err
	}
	if novel.UserID != userID {
		return fmt.Errorf("%w: novel belongs to another user", domain.ErrForbidden)
	}

	if err := s.novels.Delete(ctx, novelID); err != nil {
		return err
	}

	s.logger.Info("novel deleted", "novel_id", novelID, "user_id", userID)
	return nil
}
