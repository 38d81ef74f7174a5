package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
	"inkflow/internal/domain/repositories"
)

// NovelRepository implements repositories.NovelRepository using PostgreSQL
type NovelRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewNovelRepository creates a new NovelRepository
func NewNovelRepository(config *RepositoryConfig) repositories.NovelRepository {
	return &NovelRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new novel
func (r *NovelRepository) Create(ctx context.Context, novel *models.Novel) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, genre, description, background_setting, character_setting)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, r.tables.Novels)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		novel.UserID,
		novel.Title,
		novel.Genre,
		novel.Description,
		novel.BackgroundSetting,
		novel.CharacterSetting,
	).Scan(&novel.ID, &novel.CreatedAt, &novel.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create novel: %w", err)
	}

	return nil
}

// GetByID retrieves a novel by id
func (r *NovelRepository) GetByID(ctx context.Context, id string) (*models.Novel, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, genre, description, background_setting, character_setting,
		       created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Novels)

	var novel models.Novel
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&novel.ID,
		&novel.UserID,
		&novel.Title,
		&novel.Genre,
		&novel.Description,
		&novel.BackgroundSetting,
		&novel.CharacterSetting,
		&novel.CreatedAt,
		&novel.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("novel %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get novel: %w", err)
	}

	return &novel, nil
}

// Delete removes a novel; the schema cascades to chapters, options and
// user choices
func (r *NovelRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Novels)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete novel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("novel %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByUser retrieves all novels owned by a user, newest first
func (r *NovelRepository) ListByUser(ctx context.Context, userID string) ([]models.Novel, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, genre, description, background_setting, character_setting,
		       created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, r.tables.Novels)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list novels: %w", err)
	}
	defer rows.Close()

	novels := make([]models.Novel, 0)
	for rows.Next() {
		var novel models.Novel
		if err := rows.Scan(
			&novel.ID,
			&novel.UserID,
			&novel.Title,
			&novel.Genre,
			&novel.Description,
			&novel.BackgroundSetting,
			&novel.CharacterSetting,
			&novel.CreatedAt,
			&novel.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan novel: %w", err)
		}
		novels = append(novels, novel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate novels: %w", err)
	}

	return novels, nil
}
