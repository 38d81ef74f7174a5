package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
	"inkflow/internal/domain/repositories"
)

// OptionRepository implements repositories.OptionRepository using PostgreSQL.
// Tags and weight factors are stored as jsonb.
type OptionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewOptionRepository creates a new OptionRepository
func NewOptionRepository(config *RepositoryConfig) repositories.OptionRepository {
	return &OptionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateBatch inserts all options for a chapter
func (r *OptionRepository) CreateBatch(ctx context.Context, chapterID string, options []models.Option) error {
	if len(options) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (chapter_id, option_order, option_text, impact_hint, tags, weight_factors)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, r.tables.Options)

	executor := GetExecutor(ctx, r.pool)
	for i := range options {
		opt := &options[i]
		opt.ChapterID = chapterID

		var tags, weights []byte
		var err error
		if opt.Tags != nil {
			if tags, err = json.Marshal(opt.Tags); err != nil {
				return fmt.Errorf("encode option tags: %w", err)
			}
		}
		if opt.WeightFactors != nil {
			if weights, err = json.Marshal(opt.WeightFactors); err != nil {
				return fmt.Errorf("encode option weight factors: %w", err)
			}
		}

		err = executor.QueryRow(ctx, query,
			chapterID,
			opt.OptionOrder,
			opt.OptionText,
			opt.ImpactHint,
			tags,
			weights,
		).Scan(&opt.ID, &opt.CreatedAt)
		if err != nil {
			return fmt.Errorf("create option %d: %w", opt.OptionOrder, err)
		}
	}

	return nil
}

// ListByChapter retrieves a chapter's options ordered by option_order
func (r *OptionRepository) ListByChapter(ctx context.Context, chapterID string) ([]models.Option, error) {
	query := fmt.Sprintf(`
		SELECT id, chapter_id, option_order, option_text, impact_hint, tags, weight_factors, created_at
		FROM %s
		WHERE chapter_id = $1
		ORDER BY option_order ASC
	`, r.tables.Options)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, chapterID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()

	options := make([]models.Option, 0)
	for rows.Next() {
		opt, err := scanOption(rows)
		if err != nil {
			return nil, err
		}
		options = append(options, *opt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}

	return options, nil
}

// GetByID retrieves an option by id
func (r *OptionRepository) GetByID(ctx context.Context, id string) (*models.Option, error) {
	query := fmt.Sprintf(`
		SELECT id, chapter_id, option_order, option_text, impact_hint, tags, weight_factors, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Options)

	executor := GetExecutor(ctx, r.pool)
	opt, err := scanOption(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("option %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}

	return opt, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOption(row rowScanner) (*models.Option, error) {
	var (
		opt     models.Option
		tags    []byte
		weights []byte
	)
	if err := row.Scan(
		&opt.ID,
		&opt.ChapterID,
		&opt.OptionOrder,
		&opt.OptionText,
		&opt.ImpactHint,
		&tags,
		&weights,
		&opt.CreatedAt,
	); err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		opt.Tags = &models.OptionTags{}
		if err := json.Unmarshal(tags, opt.Tags); err != nil {
			return nil, fmt.Errorf("decode option tags: %w", err)
		}
	}
	if len(weights) > 0 {
		opt.WeightFactors = &models.OptionWeightFactors{}
		if err := json.Unmarshal(weights, opt.WeightFactors); err != nil {
			return nil, fmt.Errorf("decode option weight factors: %w", err)
		}
	}

	return &opt, nil
}

// UserChoiceRepository implements repositories.UserChoiceRepository using PostgreSQL
type UserChoiceRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewUserChoiceRepository creates a new UserChoiceRepository
func NewUserChoiceRepository(config *RepositoryConfig) repositories.UserChoiceRepository {
	return &UserChoiceRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create records a user's choice
func (r *UserChoiceRepository) Create(ctx context.Context, choice *models.UserChoice) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, chapter_id, option_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, r.tables.UserChoices)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		choice.UserID,
		choice.ChapterID,
		choice.OptionID,
	).Scan(&choice.ID, &choice.CreatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("chapter or option: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create user choice: %w", err)
	}

	return nil
}

// ListByUser retrieves a user's choices, newest first
func (r *UserChoiceRepository) ListByUser(ctx context.Context, userID string) ([]models.UserChoice, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, chapter_id, option_id, created_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, r.tables.UserChoices)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user choices: %w", err)
	}
	defer rows.Close()

	choices := make([]models.UserChoice, 0)
	for rows.Next() {
		var c models.UserChoice
		if err := rows.Scan(&c.ID, &c.UserID, &c.ChapterID, &c.OptionID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user choice: %w", err)
		}
		choices = append(choices, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user choices: %w", err)
	}

	return choices, nil
}
