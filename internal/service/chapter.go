package service

import (
	"context"
	"fmt"
	"log/slog"

	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
	"inkflow/internal/domain/repositories"
)

// ChapterService reads chapters and records branching choices. Writing
// chapter content is the generation service's job.
type ChapterService struct {
	novels   repositories.NovelRepository
	chapters repositories.ChapterRepository
	options  repositories.OptionRepository
	choices  repositories.UserChoiceRepository
	logger   *slog.Logger
}

// NewChapterService creates a chapter service.
func NewChapterService(
	novels repositories.NovelRepository,
	chapters repositories.ChapterRepository,
	options repositories.OptionRepository,
	choices repositories.UserChoiceRepository,
	logger *slog.Logger,
) *ChapterService {
	return &ChapterService{
		novels:   novels,
		chapters: chapters,
		options:  options,
		choices:  choices,
		logger:   logger,
	}
}

// ChapterDetail is a chapter plus its options. Options is empty unless the
// chapter is completed.
type ChapterDetail struct {
	Chapter *models.Chapter `json:"chapter"`
	Options []models.Option `json:"options"`
}

// Get retrieves a chapter with its options, checking novel ownership.
func (s *ChapterService) Get(ctx context.Context, chapterID, userID string) (*ChapterDetail, error) {
	chapter, err := s.ownedChapter(ctx, chapterID, userID)
	if err != nil {
		return nil, err
	}

	detail := &ChapterDetail{Chapter: chapter, Options: []models.Option{}}
	if chapter.Status == models.ChapterStatusCompleted {
		opts, err := s.options.ListByChapter(ctx, chapterID)
		if err != nil {
			return nil, err
		}
		detail.Options = opts
	}
	return detail, nil
}

// List retrieves all chapters of a novel the user owns.
func (s *ChapterService) List(ctx context.Context, novelID, userID string) ([]models.Chapter, error) {
	novel, err := s.novels.GetByID(ctx, novelID)
	if err != nil {
		return nil, err
	}
	if novel.UserID != userID {
		return nil, fmt.Errorf("%w: novel belongs to another user", domain.ErrForbidden)
	}
	return s.chapters.ListByNovel(ctx, novelID)
}

// RecordChoice stores which option the user picked on a chapter. The option
// must belong to that chapter.
func (s *ChapterService) RecordChoice(ctx context.Context, chapterID, optionID, userID string) (*models.UserChoice, error) {
	if _, err := s.ownedChapter(ctx, chapterID, userID); err != nil {
		return nil, err
	}

	option, err := s.options.GetByID(ctx, optionID)
	if err != nil {
		return nil, err
	}
	if option.ChapterID != chapterID {
		return nil, fmt.Errorf("%w: option does not belong to this chapter", domain.ErrValidation)
	}

	choice := &models.UserChoice{
		UserID:    userID,
		ChapterID: chapterID,
		OptionID:  optionID,
	}
	if err := s.choices.Create(ctx, choice); err != nil {
		return nil, err
	}

	s.logger.Info("choice recorded",
		"user_id", userID, "chapter_id", chapterID, "option_id", optionID)
	return choice, nil
}

func (s *ChapterService) ownedChapter(ctx context.Context, chapterID, userID string) (*models.Chapter, error) {
	chapter, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	novel, err := s.novels.GetByID(ctx, chapter.NovelID)
	if err != nil {
		return nil, err
	}
	if novel.UserID != userID {
		return nil, fmt.Errorf("%w: chapter belongs to another user", domain.ErrForbidden)
	}
	return chapter, nil
}
