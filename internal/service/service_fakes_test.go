package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*models.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return &domain.ConflictError{Message: "email already registered", ResourceType: "user"}
		}
	}
	user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

type memNovelRepo struct {
	mu     sync.Mutex
	novels map[string]*models.Novel
}

func newMemNovelRepo() *memNovelRepo {
	return &memNovelRepo{novels: make(map[string]*models.Novel)}
}

func (r *memNovelRepo) Create(ctx context.Context, novel *models.Novel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	novel.ID = fmt.Sprintf("novel-%d", len(r.novels)+1)
	novel.CreatedAt = time.Now()
	cp := *novel
	r.novels[novel.ID] = &cp
	return nil
}

func (r *memNovelRepo) GetByID(ctx context.Context, id string) (*models.Novel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.novels[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, fmt.Errorf("novel %s: %w", id, domain.ErrNotFound)
}

func (r *memNovelRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.novels[id]; !ok {
		return fmt.Errorf("novel %s: %w", id, domain.ErrNotFound)
	}
	delete(r.novels, id)
	return nil
}

func (r *memNovelRepo) ListByUser(ctx context.Context, userID string) ([]models.Novel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Novel
	for _, n := range r.novels {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

type memChapterRepo struct {
	mu       sync.Mutex
	chapters map[string]*models.Chapter
}

func newMemChapterRepo() *memChapterRepo {
	return &memChapterRepo{chapters: make(map[string]*models.Chapter)}
}

func (r *memChapterRepo) put(ch *models.Chapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ch
	r.chapters[ch.ID] = &cp
}

func (r *memChapterRepo) Create(ctx context.Context, chapter *models.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chapter.ID = fmt.Sprintf("chapter-%d", len(r.chapters)+1)
	cp := *chapter
	r.chapters[chapter.ID] = &cp
	return nil
}

func (r *memChapterRepo) GetByID(ctx context.Context, id string) (*models.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.chapters[id]; ok {
		cp := *ch
		return &cp, nil
	}
	return nil, fmt.Errorf("chapter %s: %w", id, domain.ErrNotFound)
}

func (r *memChapterRepo) ListByNovel(ctx context.Context, novelID string) ([]models.Chapter, error) {
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

func (r *memChapterRepo) NextChapterNumber(ctx context.Context, novelID string) (int, error) {
	chs, _ := r.ListByNovel(ctx, novelID)
	max := 0
	for _, ch := range chs {
		if ch.ChapterNumber > max {
			max = ch.ChapterNumber
		}
	}
	return max + 1, nil
}

func (r *memChapterRepo) ClaimGeneration(ctx context.Context, chapterID, sessionID string, startedAt time.Time) error {
	return nil
}

func (r *memChapterRepo) UpdateOutline(ctx context.Context, chapterID, title, summary string) error {
	return nil
}

func (r *memChapterRepo) UpdateContent(ctx context.Context, chapterID, content string, contentLength int, summary *string) error {
	return nil
}

func (r *memChapterRepo) UpdateStatus(ctx context.Context, chapterID string, status models.ChapterStatus, completedAt *time.Time) error {
	return nil
}

type memOptionRepo struct {
	mu     sync.Mutex
	byChap map[string][]models.Option
	nextID int
}

func newMemOptionRepo() *memOptionRepo {
	return &memOptionRepo{byChap: make(map[string][]models.Option)}
}

func (r *memOptionRepo) CreateBatch(ctx context.Context, chapterID string, options []models.Option) error {
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

func (r *memOptionRepo) ListByChapter(ctx context.Context, chapterID string) ([]models.Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Option(nil), r.byChap[chapterID]...), nil
}

func (r *memOptionRepo) GetByID(ctx context.Context, id string) (*models.Option, error) {
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

type memChoiceRepo struct {
	mu      sync.Mutex
	choices []models.UserChoice
}

func (r *memChoiceRepo) Create(ctx context.Context, choice *models.UserChoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	choice.ID = fmt.Sprintf("choice-%d", len(r.choices)+1)
	choice.CreatedAt = time.Now()
	r.choices = append(r.choices, *choice)
	return nil
}

func (r *memChoiceRepo) ListByUser(ctx context.Context, userID string) ([]models.UserChoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.UserChoice
	for _, c := range r.choices {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}
