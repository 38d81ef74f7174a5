package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
	"inkflow/internal/domain/repositories"
)

// ChapterRepository implements repositories.ChapterRepository using PostgreSQL
type ChapterRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewChapterRepository creates a new ChapterRepository
func NewChapterRepository(config *RepositoryConfig) repositories.ChapterRepository {
	return &ChapterRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new chapter
func (r *ChapterRepository) Create(ctx context.Context, chapter *models.Chapter) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (novel_id, chapter_number, title, summary, content, content_length, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, r.tables.Chapters)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		chapter.NovelID,
		chapter.ChapterNumber,
		chapter.Title,
		chapter.Summary,
		chapter.Content,
		chapter.ContentLength,
		chapter.Status,
	).Scan(&chapter.ID, &chapter.CreatedAt, &chapter.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("chapter %d already exists for this novel", chapter.ChapterNumber),
				ResourceType: "chapter",
			}
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("novel %s: %w", chapter.NovelID, domain.ErrNotFound)
		}
		return fmt.Errorf("create chapter: %w", err)
	}

	return nil
}

// GetByID retrieves a chapter by id
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*models.Chapter, error) {
	query := fmt.Sprintf(`
		SELECT id, novel_id, chapter_number, title, summary, content, content_length,
		       status, session_id, generation_started_at, generation_completed_at,
		       created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Chapters)

	var chapter models.Chapter
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&chapter.ID,
		&chapter.NovelID,
		&chapter.ChapterNumber,
		&chapter.Title,
		&chapter.Summary,
		&chapter.Content,
		&chapter.ContentLength,
		&chapter.Status,
		&chapter.SessionID,
		&chapter.GenerationStartedAt,
		&chapter.GenerationCompletedAt,
		&chapter.CreatedAt,
		&chapter.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("chapter %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get chapter: %w", err)
	}

	return &chapter, nil
}

// ListByNovel retrieves all chapters of a novel ordered by chapter number
func (r *ChapterRepository) ListByNovel(ctx context.Context, novelID string) ([]models.Chapter, error) {
	query := fmt.Sprintf(`
		SELECT id, novel_id, chapter_number, title, summary, content, content_length,
		       status, session_id, generation_started_at, generation_completed_at,
		       created_at, updated_at
		FROM %s
		WHERE novel_id = $1
		ORDER BY chapter_number ASC
	`, r.tables.Chapters)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, novelID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	chapters := make([]models.Chapter, 0)
	for rows.Next() {
		var chapter models.Chapter
		if err := rows.Scan(
			&chapter.ID,
			&chapter.NovelID,
			&chapter.ChapterNumber,
			&chapter.Title,
			&chapter.Summary,
			&chapter.Content,
			&chapter.ContentLength,
			&chapter.Status,
			&chapter.SessionID,
			&chapter.GenerationStartedAt,
			&chapter.GenerationCompletedAt,
			&chapter.CreatedAt,
			&chapter.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapters: %w", err)
	}

	return chapters, nil
}

// NextChapterNumber returns max(chapter_number)+1 for a novel (1 if none)
func (r *ChapterRepository) NextChapterNumber(ctx context.Context, novelID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(chapter_number), 0) + 1
		FROM %s
		WHERE novel_id = $1
	`, r.tables.Chapters)

	var next int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, novelID).Scan(&next); err != nil {
		return 0, fmt.Errorf("next chapter number: %w", err)
	}

	return next, nil
}

// ClaimGeneration atomically marks the chapter as generating under the given
// session. The conditional WHERE clause is what serializes concurrent starts:
// only one caller observes a row update, everyone else gets ErrConflict.
//
// A chapter freshly created with status=generating and a NULL session_id is
// claimable; a chapter with a live session (generating + non-NULL session) is
// not. Terminal chapters are claimable again, which is how a failed
// generation gets retried under a fresh session id.
func (r *ChapterRepository) ClaimGeneration(ctx context.Context, chapterID, sessionID string, startedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2,
		    session_id = $3,
		    generation_started_at = $4,
		    generation_completed_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
		  AND NOT (status = $2 AND session_id IS NOT NULL)
	`, r.tables.Chapters)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, chapterID, models.ChapterStatusGenerating, sessionID, startedAt)
	if err != nil {
		return fmt.Errorf("claim generation: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the chapter is missing or another session holds the claim.
		if _, getErr := r.GetByID(ctx, chapterID); getErr != nil {
			return getErr
		}
		return &domain.ConflictError{
			Message:      fmt.Sprintf("chapter %s is already generating", chapterID),
			ResourceType: "chapter",
			ResourceID:   chapterID,
		}
	}

	return nil
}

// UpdateOutline writes the generated title and summary
func (r *ChapterRepository) UpdateOutline(ctx context.Context, chapterID, title, summary string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $2,
		    summary = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, r.tables.Chapters)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, chapterID, title, summary)
	if err != nil {
		return fmt.Errorf("update chapter outline: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chapter %s: %w", chapterID, domain.ErrNotFound)
	}

	return nil
}

// UpdateContent writes accumulated content and its code point length
func (r *ChapterRepository) UpdateContent(ctx context.Context, chapterID, content string, contentLength int, summary *string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $2,
		    content_length = $3,
		    summary = COALESCE($4, summary),
		    updated_at = NOW()
		WHERE id = $1
	`, r.tables.Chapters)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, chapterID, content, contentLength, summary)
	if err != nil {
		return fmt.Errorf("update chapter content: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chapter %s: %w", chapterID, domain.ErrNotFound)
	}

	return nil
}

// UpdateStatus transitions the chapter's status
func (r *ChapterRepository) UpdateStatus(ctx context.Context, chapterID string, status models.ChapterStatus, completedAt *time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2,
		    generation_completed_at = COALESCE($3, generation_completed_at),
		    updated_at = NOW()
		WHERE id = $1
	`, r.tables.Chapters)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, chapterID, status, completedAt)
	if err != nil {
		return fmt.Errorf("update chapter status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chapter %s: %w", chapterID, domain.ErrNotFound)
	}

	return nil
}
