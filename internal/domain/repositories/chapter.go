package repositories

import (
	"context"
	"time"

	"inkflow/internal/domain/models"
)

// ChapterRepository persists chapters and their generation state.
//
// During an active generation the manager is the only writer of a chapter's
// content and status columns; readers (stream relays, detail endpoints) only
// ever read. ClaimGeneration is the single point that serializes concurrent
// generation starts for one chapter.
type ChapterRepository interface {
	// Create inserts a new chapter and fills in store-generated fields.
	Create(ctx context.Context, chapter *models.Chapter) error

	// GetByID retrieves a chapter by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*models.Chapter, error)

	// ListByNovel retrieves all chapters of a novel ordered by chapter number.
	ListByNovel(ctx context.Context, novelID string) ([]models.Chapter, error)

	// NextChapterNumber returns max(chapter_number)+1 for a novel (1 if none).
	NextChapterNumber(ctx context.Context, novelID string) (int, error)

	// ClaimGeneration atomically marks the chapter as generating under the
	// given session. Returns ErrConflict if another session is already live
	// for this chapter, ErrNotFound if the chapter does not exist.
	ClaimGeneration(ctx context.Context, chapterID, sessionID string, startedAt time.Time) error

	// UpdateOutline writes the generated title and summary.
	UpdateOutline(ctx context.Context, chapterID, title, summary string) error

	// UpdateContent writes accumulated content and its code point length.
	// A nil summary leaves the stored summary untouched.
	UpdateContent(ctx context.Context, chapterID, content string, contentLength int, summary *string) error

	// UpdateStatus transitions the chapter's status. completedAt is stored
	// only when non-nil (terminal transitions).
	UpdateStatus(ctx context.Context, chapterID string, status models.ChapterStatus, completedAt *time.Time) error
}
