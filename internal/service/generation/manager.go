package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"inkflow/internal/cache"
	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
	"inkflow/internal/domain/repositories"
)

// Manager errors. Infrastructure failures wrap ErrStoreUnavailable or
// ErrCacheUnavailable so callers can tell which side of the dual write broke.
var (
	ErrNotStarted        = errors.New("generation not started")
	ErrAlreadyGenerating = errors.New("generation already in progress")
	ErrStoreUnavailable  = errors.New("durable store unavailable")
	ErrCacheUnavailable  = errors.New("generation cache unavailable")
)

// DefaultSyncInterval is how often accumulated content is flushed to the
// durable store while generating. The cache sees every chunk; the store lags
// by at most this interval.
const DefaultSyncInterval = 5 * time.Second

// Cache is the ephemeral snapshot store the manager dual-writes into.
type Cache interface {
	Set(ctx context.Context, chapterID string, snap cache.Snapshot) error
	Get(ctx context.Context, chapterID string) (*cache.Snapshot, error)
	Delete(ctx context.Context, chapterID string) error
}

type managerState int

const (
	stateNotStarted managerState = iota
	stateGenerating
	stateCompleted
	stateFailed
)

// Manager owns one generation attempt for one chapter: it accumulates
// producer output, overwrites the cache snapshot on every chunk, flushes to
// the durable store on an interval, and performs the terminal transition.
//
// A Manager is single-owner: only the goroutine that called Start may call
// AppendChunk, Complete, or Fail. It is not safe for concurrent use; the
// cross-process guard against two writers is the durable claim in Start.
type Manager struct {
	chapterID string
	novelID   string
	sessionID string

	chapters repositories.ChapterRepository
	options  repositories.OptionRepository
	tx       repositories.TransactionManager
	cache    Cache
	logger   *slog.Logger

	syncInterval time.Duration
	now          func() time.Time

	state    managerState
	title    string
	buf      strings.Builder
	runes    int
	lastSync time.Time
}

// ManagerConfig wires a Manager's identity and collaborators.
type ManagerConfig struct {
	ChapterID string
	NovelID   string
	SessionID string

	Chapters repositories.ChapterRepository
	Options  repositories.OptionRepository
	Tx       repositories.TransactionManager
	Cache    Cache
	Logger   *slog.Logger

	// SyncInterval overrides DefaultSyncInterval when positive.
	SyncInterval time.Duration
}

// NewManager creates a manager for one generation attempt.
func NewManager(cfg ManagerConfig) *Manager {
	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Manager{
		chapterID:    cfg.ChapterID,
		novelID:      cfg.NovelID,
		sessionID:    cfg.SessionID,
		chapters:     cfg.Chapters,
		options:      cfg.Options,
		tx:           cfg.Tx,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		syncInterval: interval,
		now:          time.Now,
	}
}

// SessionID returns the session this manager writes under.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// Start claims the chapter for this session and seeds the cache snapshot.
//
// The durable claim runs first: it is the atomicity point for concurrent
// starts, so a losing starter can never clobber the winner's cache entry.
// If the cache seed fails after a successful claim, the claim is rolled back
// through the fail path and ErrCacheUnavailable is returned.
func (m *Manager) Start(ctx context.Context, title string) error {
	if m.state != stateNotStarted {
		return fmt.Errorf("%w: chapter %s", ErrAlreadyGenerating, m.chapterID)
	}

	err := m.chapters.ClaimGeneration(ctx, m.chapterID, m.sessionID, m.now())
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("%w: chapter %s", ErrAlreadyGenerating, m.chapterID)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	snap := cache.Snapshot{SessionID: m.sessionID, Title: title}
	if err := m.cache.Set(ctx, m.chapterID, snap); err != nil {
		// Roll the claim back so the chapter does not sit in a live session
		// nobody is producing for.
		m.failQuietly(ctx)
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	m.state = stateGenerating
	m.title = title
	m.lastSync = m.now()

	m.logger.Info("generation started",
		"chapter_id", m.chapterID,
		"session_id", m.sessionID,
		"title", title,
	)
	return nil
}

// AppendChunk accumulates one producer fragment.
//
// The cache is overwritten with the full accumulated content on every call;
// it is the authoritative snapshot while generating. The durable store is
// flushed only when the sync interval has elapsed. A flush failure is
// returned as ErrStoreUnavailable without advancing the flush clock, so the
// next chunk retries; the cache path is already committed by then and stays
// correct.
func (m *Manager) AppendChunk(ctx context.Context, text string) error {
	if m.state != stateGenerating {
		return fmt.Errorf("%w: chapter %s", ErrNotStarted, m.chapterID)
	}

	m.buf.WriteString(text)
	m.runes += utf8.RuneCountInString(text)

	snap := cache.Snapshot{SessionID: m.sessionID, Title: m.title, Content: m.buf.String()}
	if err := m.cache.Set(ctx, m.chapterID, snap); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	if m.now().Sub(m.lastSync) >= m.syncInterval {
		if err := m.chapters.UpdateContent(ctx, m.chapterID, m.buf.String(), m.runes, nil); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		m.lastSync = m.now()
		m.logger.Debug("content flushed to store",
			"chapter_id", m.chapterID,
			"content_length", m.runes,
		)
	}

	return nil
}

// Complete performs the successful terminal transition: final content,
// options, and the completed status land in one transaction, then the cache
// entry is deleted unconditionally.
func (m *Manager) Complete(ctx context.Context, finalContent, summary string, options []models.Option) error {
	if m.state != stateGenerating {
		return fmt.Errorf("%w: chapter %s", ErrNotStarted, m.chapterID)
	}

	m.buf.Reset()
	m.buf.WriteString(finalContent)
	m.runes = utf8.RuneCountInString(finalContent)

	var summaryPtr *string
	if summary != "" {
		summaryPtr = &summary
	}

	err := m.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if err := m.chapters.UpdateContent(txCtx, m.chapterID, finalContent, m.runes, summaryPtr); err != nil {
			return err
		}
		if err := m.options.CreateBatch(txCtx, m.chapterID, options); err != nil {
			return err
		}
		completedAt := m.now()
		return m.chapters.UpdateStatus(txCtx, m.chapterID, models.ChapterStatusCompleted, &completedAt)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	m.state = stateCompleted

	if err := m.cache.Delete(ctx, m.chapterID); err != nil {
		// The store committed; the chapter is completed either way. A stale
		// cache entry violates the cleanup invariant, so this is loud.
		m.logger.Error("cache cleanup failed after completion",
			"chapter_id", m.chapterID,
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	m.logger.Info("generation completed",
		"chapter_id", m.chapterID,
		"content_length", m.runes,
		"options", len(options),
	)
	return nil
}

// Fail performs the failure terminal transition. It is a no-op unless a
// session is live, so calling it on an already-terminal or never-started
// manager is safe. The status write is best-effort (log-and-continue: a
// store outage must not mask the original failure); the cache delete is
// unconditional.
func (m *Manager) Fail(ctx context.Context, reason error) {
	if m.state != stateGenerating {
		return
	}
	m.state = stateFailed

	m.logger.Warn("generation failed",
		"chapter_id", m.chapterID,
		"session_id", m.sessionID,
		"reason", reason,
	)

	m.failQuietly(ctx)
}

// failQuietly writes the failed status and clears the cache, logging rather
// than returning errors.
func (m *Manager) failQuietly(ctx context.Context) {
	completedAt := m.now()
	if err := m.chapters.UpdateStatus(ctx, m.chapterID, models.ChapterStatusFailed, &completedAt); err != nil {
		m.logger.Error("failed to mark chapter failed in store",
			"chapter_id", m.chapterID,
			"error", err,
		)
	}

	if err := m.cache.Delete(ctx, m.chapterID); err != nil {
		m.logger.Error("failed to clear generation cache",
			"chapter_id", m.chapterID,
			"error", err,
		)
	}

	m.state = stateFailed
}
