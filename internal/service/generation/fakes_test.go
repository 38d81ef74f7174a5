package generation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"inkflow/internal/cache"
	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
	"inkflow/internal/domain/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeChapterRepo is an in-memory ChapterRepository with per-method error
// injection.
type fakeChapterRepo struct {
	mu       sync.Mutex
	chapters map[string]*models.Chapter
	nextID   int

	claimErr         error
	updateContentErr error
	updateStatusErr  error
	getErr           error

	contentWrites int
}

func newFakeChapterRepo() *fakeChapterRepo {
	return &fakeChapterRepo{chapters: make(map[string]*models.Chapter)}
}

func (r *fakeChapterRepo) put(ch *models.Chapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ch
	r.chapters[ch.ID] = &cp
}

func (r *fakeChapterRepo) get(id string) *models.Chapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.chapters[id]; ok {
		cp := *ch
		return &cp
	}
	return nil
}

func (r *fakeChapterRepo) Create(ctx context.Context, chapter *models.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	chapter.ID = fmt.Sprintf("chapter-%d", r.nextID)
	chapter.CreatedAt = time.Now()
	chapter.UpdatedAt = chapter.CreatedAt
	cp := *chapter
	r.chapters[chapter.ID] = &cp
	return nil
}

func (r *fakeChapterRepo) GetByID(ctx context.Context, id string) (*models.Chapter, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	ch := r.get(id)
	if ch == nil {
		return nil, fmt.Errorf("chapter %s: %w", id, domain.ErrNotFound)
	}
	return ch, nil
}

func (r *fakeChapterRepo) ListByNovel(ctx context.Context, novelID string) ([]models.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Chapter
	for _, ch := range r.chapters {
		if ch.NovelID == novelID {
			out = append(out, *ch)
		}
	}
	return out, nil
}

func (r *fakeChapterRepo) NextChapterNumber(ctx context.Context, novelID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, ch := range r.chapters {
		if ch.NovelID == novelID && ch.ChapterNumber > max {
			max = ch.ChapterNumber
		}
	}
	return max + 1, nil
}

func (r *fakeChapterRepo) ClaimGeneration(ctx context.Context, chapterID, sessionID string, startedAt time.Time) error {
	if r.claimErr != nil {
		return r.claimErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chapters[chapterID]
	if !ok {
		return fmt.Errorf("chapter %s: %w", chapterID, domain.ErrNotFound)
	}
	if ch.Status == models.ChapterStatusGenerating && ch.SessionID != nil {
		return &domain.ConflictError{
			Message:      "chapter is already generating",
			ResourceType: "chapter",
			ResourceID:   chapterID,
		}
	}
	sid := sessionID
	started := startedAt
	ch.Status = models.ChapterStatusGenerating
	ch.SessionID = &sid
	ch.GenerationStartedAt = &started
	ch.GenerationCompletedAt = nil
	return nil
}

func (r *fakeChapterRepo) UpdateOutline(ctx context.Context, chapterID, title, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chapters[chapterID]
	if !ok {
		return fmt.Errorf("chapter %s: %w", chapterID, domain.ErrNotFound)
	}
	ch.Title = title
	ch.Summary = summary
	return nil
}

func (r *fakeChapterRepo) UpdateContent(ctx context.Context, chapterID, content string, contentLength int, summary *string) error {
	if r.updateContentErr != nil {
		return r.updateContentErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chapters[chapterID]
	if !ok {
		return fmt.Errorf("chapter %s: %w", chapterID, domain.ErrNotFound)
	}
	ch.Content = content
	ch.ContentLength = contentLength
	if summary != nil {
		ch.Summary = *summary
	}
	r.contentWrites++
	return nil
}

func (r *fakeChapterRepo) UpdateStatus(ctx context.Context, chapterID string, status models.ChapterStatus, completedAt *time.Time) error {
	if r.updateStatusErr != nil {
		return r.updateStatusErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chapters[chapterID]
	if !ok {
		return fmt.Errorf("chapter %s: %w", chapterID, domain.ErrNotFound)
	}
	ch.Status = status
	if completedAt != nil {
		ch.GenerationCompletedAt = completedAt
	}
	return nil
}

// fakeOptionRepo is an in-memory OptionRepository.
type fakeOptionRepo struct {
	mu       sync.Mutex
	byChap   map[string][]models.Option
	nextID   int
	listErr  error
	batchErr error
}

func newFakeOptionRepo() *fakeOptionRepo {
	return &fakeOptionRepo{byChap: make(map[string][]models.Option)}
}

func (r *fakeOptionRepo) CreateBatch(ctx context.Context, chapterID string, options []models.Option) error {
	if r.batchErr != nil {
		return r.batchErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range options {
		r.nextID++
		options[i].ID = fmt.Sprintf("option-%d", r.nextID)
		options[i].ChapterID = chapterID
	}
	r.byChap[chapterID] = append(r.byChap[chapterID], options...)
	return nil
}

func (r *fakeOptionRepo) ListByChapter(ctx context.Context, chapterID string) ([]models.Option, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Option(nil), r.byChap[chapterID]...), nil
}

func (r *fakeOptionRepo) GetByID(ctx context.Context, id string) (*models.Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opts := range r.byChap {
		for _, o := range opts {
			if o.ID == id {
				cp := o
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("option %s: %w", id, domain.ErrNotFound)
}

// fakeCache is an in-memory Cache with error injection and call counters.
type fakeCache struct {
	mu    sync.Mutex
	snaps map[string]cache.Snapshot

	setErr error
	getErr error
	delErr error

	sets    int
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{snaps: make(map[string]cache.Snapshot)}
}

func (c *fakeCache) Set(ctx context.Context, chapterID string, snap cache.Snapshot) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[chapterID] = snap
	c.sets++
	return nil
}

func (c *fakeCache) Get(ctx context.Context, chapterID string) (*cache.Snapshot, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap, ok := c.snaps[chapterID]; ok {
		cp := snap
		return &cp, nil
	}
	return nil, nil
}

func (c *fakeCache) Delete(ctx context.Context, chapterID string) error {
	if c.delErr != nil {
		return c.delErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snaps, chapterID)
	c.deletes++
	return nil
}

func (c *fakeCache) snapshot(chapterID string) *cache.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap, ok := c.snaps[chapterID]; ok {
		cp := snap
		return &cp
	}
	return nil
}

// fakeTx runs the function directly; the fakes have no transaction semantics.
type fakeTx struct {
	execErr error
}

func (t *fakeTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if t.execErr != nil {
		return t.execErr
	}
	return fn(ctx)
}
