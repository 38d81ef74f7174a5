package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"inkflow/internal/auth"
	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
	"inkflow/internal/domain/repositories"
	"inkflow/internal/service/llm"
)

// DefaultGenerationTimeout bounds one background generation attempt end to
// end, outline included.
const DefaultGenerationTimeout = 10 * time.Minute

// Service orchestrates chapter generation: it creates the chapter row,
// runs the producer in the background through a Manager, and hands read
// traffic to the relay and resumer.
type Service struct {
	novels   repositories.NovelRepository
	chapters repositories.ChapterRepository
	options  repositories.OptionRepository
	tx       repositories.TransactionManager
	cache    Cache
	provider llm.Provider
	codec    *auth.ResumeTokenCodec
	logger   *slog.Logger

	relay   *Relay
	resumer *Resumer

	syncInterval      time.Duration
	generationTimeout time.Duration
}

// ServiceConfig wires a Service's collaborators.
type ServiceConfig struct {
	Novels   repositories.NovelRepository
	Chapters repositories.ChapterRepository
	Options  repositories.OptionRepository
	Tx       repositories.TransactionManager
	Cache    Cache
	Provider llm.Provider
	Codec    *auth.ResumeTokenCodec
	Logger   *slog.Logger

	// SyncInterval overrides DefaultSyncInterval when positive.
	SyncInterval time.Duration
	// GenerationTimeout overrides DefaultGenerationTimeout when positive.
	GenerationTimeout time.Duration
}

// NewService creates a generation service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.GenerationTimeout
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}

	mint := func(chapterID, sessionID, novelID, userID string, sentLength int) (string, error) {
		return cfg.Codec.Mint(chapterID, sessionID, novelID, userID, sentLength)
	}

	return &Service{
		novels:            cfg.Novels,
		chapters:          cfg.Chapters,
		options:           cfg.Options,
		tx:                cfg.Tx,
		cache:             cfg.Cache,
		provider:          cfg.Provider,
		codec:             cfg.Codec,
		logger:            cfg.Logger,
		relay:             NewRelay(cfg.Chapters, cfg.Options, cfg.Cache, mint, cfg.Logger),
		resumer:           NewResumer(cfg.Chapters, cfg.Options, cfg.Cache, cfg.Codec, cfg.Logger),
		syncInterval:      cfg.SyncInterval,
		generationTimeout: timeout,
	}
}

// StartGeneration creates the next chapter of a novel and kicks off its
// generation in the background. It returns as soon as the chapter row exists;
// the caller streams the content separately.
//
// optionID, when non-empty, names the option the user chose on the previous
// chapter and must belong to a chapter of the same novel.
func (s *Service) StartGeneration(ctx context.Context, novelID, userID, optionID string) (*models.Chapter, error) {
	novel, err := s.novels.GetByID(ctx, novelID)
	if err != nil {
		return nil, err
	}
	if novel.UserID != userID {
		return nil, fmt.Errorf("%w: novel belongs to another user", domain.ErrForbidden)
	}

	chosenOption, previousContent, err := s.continuityContext(ctx, novelID, optionID)
	if err != nil {
		return nil, err
	}

	number, err := s.chapters.NextChapterNumber(ctx, novelID)
	if err != nil {
		return nil, err
	}

	// Created with status=generating and no session: visible to stream
	// clients immediately, claimable by exactly one manager.
	chapter := &models.Chapter{
		NovelID:       novelID,
		ChapterNumber: number,
		Status:        models.ChapterStatusGenerating,
	}
	if err := s.chapters.Create(ctx, chapter); err != nil {
		return nil, err
	}

	req := &llm.ChapterRequest{
		Novel:           novel,
		ChapterNumber:   number,
		PreviousContent: previousContent,
		ChosenOption:    chosenOption,
	}
	go s.runGeneration(chapter, req)

	return chapter, nil
}

// StreamChapter opens a live event stream over a chapter the user owns.
func (s *Service) StreamChapter(ctx context.Context, chapterID, userID string) (<-chan Event, error) {
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

	return s.relay.Stream(ctx, chapterID, userID)
}

// Resume opens a catch-up stream for a disconnected client holding a resume
// token.
func (s *Service) Resume(ctx context.Context, token, userID string) (<-chan Event, error) {
	return s.resumer.Resume(ctx, token, userID)
}

// continuityContext resolves the chosen option's text and the previous
// chapter's content for the provider prompt. Both are empty for a first
// chapter.
func (s *Service) continuityContext(ctx context.Context, novelID, optionID string) (chosenOption, previousContent string, err error) {
	if optionID != "" {
		opt, err := s.options.GetByID(ctx, optionID)
		if err != nil {
			return "", "", err
		}
		optChapter, err := s.chapters.GetByID(ctx, opt.ChapterID)
		if err != nil {
			return "", "", err
		}
		if optChapter.NovelID != novelID {
			return "", "", fmt.Errorf("%w: option does not belong to this novel", domain.ErrValidation)
		}
		chosenOption = opt.OptionText
	}

	existing, err := s.chapters.ListByNovel(ctx, novelID)
	if err != nil {
		return "", "", err
	}
	for i := len(existing) - 1; i >= 0; i-- {
		if existing[i].Status == models.ChapterStatusCompleted {
			previousContent = existing[i].Content
			break
		}
	}

	return chosenOption, previousContent, nil
}

// runGeneration is the producer goroutine for one chapter. It is detached
// from the request context: a client that disconnects right after kicking off
// generation still gets a finished chapter to come back to.
func (s *Service) runGeneration(chapter *models.Chapter, req *llm.ChapterRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.generationTimeout)
	defer cancel()

	mgr := NewManager(ManagerConfig{
		ChapterID:    chapter.ID,
		NovelID:      chapter.NovelID,
		SessionID:    uuid.NewString(),
		Chapters:     s.chapters,
		Options:      s.options,
		Tx:           s.tx,
		Cache:        s.cache,
		Logger:       s.logger,
		SyncInterval: s.syncInterval,
	})

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("generation panicked",
				"chapter_id", chapter.ID, "panic", r)
			mgr.Fail(context.Background(), fmt.Errorf("panic: %v", r))
		}
	}()

	outline, err := s.provider.GenerateOutline(ctx, req)
	if err != nil {
		// No session was ever claimed; mark the row failed directly.
		s.logger.Error("outline generation failed",
			"chapter_id", chapter.ID, "error", err)
		s.markFailed(ctx, chapter.ID)
		return
	}
	req.Outline = outline

	if err := s.chapters.UpdateOutline(ctx, chapter.ID, outline.Title, outline.Summary); err != nil {
		// The cache snapshot carries the title either way; the durable copy
		// catches up on the next content flush or completion.
		s.logger.Warn("failed to persist chapter outline",
			"chapter_id", chapter.ID, "error", err)
	}

	if err := mgr.Start(ctx, outline.Title); err != nil {
		s.logger.Error("failed to start generation",
			"chapter_id", chapter.ID, "error", err)
		// The row already exists with status=generating; without a failure
		// marker it would look live forever. A conflict means another session
		// owns the chapter, so only that case leaves the row alone.
		if !errors.Is(err, ErrAlreadyGenerating) {
			s.markFailed(ctx, chapter.ID)
		}
		return
	}

	chunks, err := s.provider.StreamChapter(ctx, req)
	if err != nil {
		mgr.Fail(ctx, err)
		return
	}

	for chunk := range chunks {
		switch {
		case chunk.Err != nil:
			mgr.Fail(ctx, chunk.Err)
			return

		case chunk.Result != nil:
			opts := draftsToOptions(chunk.Result.Options)
			if err := mgr.Complete(ctx, chunk.Result.Content, chunk.Result.Summary, opts); err != nil {
				if errors.Is(err, ErrCacheUnavailable) {
					// The store committed; only cache cleanup failed. The
					// chapter is completed, so do not fail it.
					return
				}
				mgr.Fail(ctx, err)
			}
			return

		case chunk.Delta != "":
			if err := mgr.AppendChunk(ctx, chunk.Delta); err != nil {
				if errors.Is(err, ErrStoreUnavailable) {
					// Interval flush missed; the cache has the full content
					// and the next chunk retries the flush.
					s.logger.Warn("content flush failed, continuing",
						"chapter_id", chapter.ID, "error", err)
					continue
				}
				mgr.Fail(ctx, err)
				return
			}
		}
	}

	// Channel closed without Result or Err.
	mgr.Fail(ctx, errors.New("provider stream ended without a result"))
}

func (s *Service) markFailed(ctx context.Context, chapterID string) {
	completedAt := time.Now()
	if err := s.chapters.UpdateStatus(ctx, chapterID, models.ChapterStatusFailed, &completedAt); err != nil {
		s.logger.Error("failed to mark chapter failed",
			"chapter_id", chapterID, "error", err)
	}
}

// draftsToOptions converts provider option drafts to persistable options,
// assigning display order.
func draftsToOptions(drafts []llm.OptionDraft) []models.Option {
	options := make([]models.Option, 0, len(drafts))
	for i, d := range drafts {
		options = append(options, models.Option{
			OptionOrder:   i + 1,
			OptionText:    d.Text,
			ImpactHint:    d.ImpactHint,
			Tags:          d.Tags,
			WeightFactors: d.WeightFactors,
		})
	}
	return options
}
