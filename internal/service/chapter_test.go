package service

import (
	"context"
	"errors"
	"testing"

	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
)

type chapterFixture struct {
	novels   *memNovelRepo
	chapters *memChapterRepo
	options  *memOptionRepo
	choices  *memChoiceRepo
	svc      *ChapterService
}

func newChapterFixture() *chapterFixture {
	f := &chapterFixture{
		novels:   newMemNovelRepo(),
		chapters: newMemChapterRepo(),
		options:  newMemOptionRepo(),
		choices:  &memChoiceRepo{},
	}
	f.svc = NewChapterService(f.novels, f.chapters, f.options, f.choices, testLogger())
	return f
}

func (f *chapterFixture) seed(userID string, status models.ChapterStatus) (*models.Novel, *models.Chapter) {
	novel := &models.Novel{UserID: userID, Title: "雾海", Genre: "wuxia"}
	f.novels.Create(context.Background(), novel)
	chapter := &models.Chapter{NovelID: novel.ID, ChapterNumber: 1, Status: status}
	f.chapters.Create(context.Background(), chapter)
	return novel, chapter
}

func TestChapterGetIncludesOptionsWhenCompleted(t *testing.T) {
	f := newChapterFixture()
	_, chapter := f.seed("user-1", models.ChapterStatusCompleted)
	f.options.CreateBatch(context.Background(), chapter.ID, []models.Option{
		{OptionOrder: 1, OptionText: "追上去"},
		{OptionOrder: 2, OptionText: "原地等待"},
	})

	detail, err := f.svc.Get(context.Background(), chapter.ID, "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(detail.Options) != 2 {
		t.Errorf("options = %d, want 2", len(detail.Options))
	}
}

func TestChapterGetNoOptionsWhileGenerating(t *testing.T) {
	f := newChapterFixture()
	_, chapter := f.seed("user-1", models.ChapterStatusGenerating)

	detail, err := f.svc.Get(context.Background(), chapter.ID, "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(detail.Options) != 0 {
		t.Errorf("generating chapter returned %d options", len(detail.Options))
	}
}

func TestChapterGetOwnership(t *testing.T) {
	f := newChapterFixture()
	_, chapter := f.seed("owner", models.ChapterStatusCompleted)

	_, err := f.svc.Get(context.Background(), chapter.ID, "intruder")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("Get() error = %v, want ErrForbidden", err)
	}
}

func TestChapterListOwnership(t *testing.T) {
	f := newChapterFixture()
	novel, _ := f.seed("owner", models.ChapterStatusCompleted)

	if _, err := f.svc.List(context.Background(), novel.ID, "intruder"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("List() error = %v, want ErrForbidden", err)
	}

	chapters, err := f.svc.List(context.Background(), novel.ID, "owner")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(chapters) != 1 {
		t.Errorf("chapters = %d, want 1", len(chapters))
	}
}

func TestChapterRecordChoice(t *testing.T) {
	f := newChapterFixture()
	_, chapter := f.seed("user-1", models.ChapterStatusCompleted)
	f.options.CreateBatch(context.Background(), chapter.ID, []models.Option{
		{OptionOrder: 1, OptionText: "追上去"},
	})
	opts, _ := f.options.ListByChapter(context.Background(), chapter.ID)

	choice, err := f.svc.RecordChoice(context.Background(), chapter.ID, opts[0].ID, "user-1")
	if err != nil {
		t.Fatalf("RecordChoice() error = %v", err)
	}
	if choice.OptionID != opts[0].ID || choice.ChapterID != chapter.ID {
		t.Errorf("unexpected choice: %+v", choice)
	}

	recorded, _ := f.choices.ListByUser(context.Background(), "user-1")
	if len(recorded) != 1 {
		t.Errorf("stored choices = %d, want 1", len(recorded))
	}
}

func TestChapterRecordChoiceRejectsForeignOption(t *testing.T) {
	f := newChapterFixture()
	_, chapter := f.seed("user-1", models.ChapterStatusCompleted)

	// Option belongs to a different chapter.
	other := &models.Chapter{NovelID: chapter.NovelID, ChapterNumber: 2,
		Status: models.ChapterStatusCompleted}
	f.chapters.Create(context.Background(), other)
	f.options.CreateBatch(context.Background(), other.ID, []models.Option{
		{OptionOrder: 1, OptionText: "x"},
	})
	opts, _ := f.options.ListByChapter(context.Background(), other.ID)

	_, err := f.svc.RecordChoice(context.Background(), chapter.ID, opts[0].ID, "user-1")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("RecordChoice() error = %v, want ErrValidation", err)
	}
}

func TestNovelDelete(t *testing.T) {
	repo := newMemNovelRepo()
	svc := NewNovelService(repo, testLogger())

	novel, err := svc.Create(context.Background(), "user-1", CreateNovelInput{
		Title: "雾海", Genre: "wuxia",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(context.Background(), novel.ID, "user-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(context.Background(), novel.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	if err := svc.Delete(context.Background(), novel.ID, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestNovelDeleteOwnership(t *testing.T) {
	repo := newMemNovelRepo()
	svc := NewNovelService(repo, testLogger())

	novel, err := svc.Create(context.Background(), "owner", CreateNovelInput{
		Title: "雾海", Genre: "wuxia",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(context.Background(), novel.ID, "intruder"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("Delete() by non-owner error = %v, want ErrForbidden", err)
	}
	if _, err := repo.GetByID(context.Background(), novel.ID); err != nil {
		t.Errorf("novel disappeared after a forbidden delete: %v", err)
	}
}

func TestNovelCreateValidation(t *testing.T) {
	svc := NewNovelService(newMemNovelRepo(), testLogger())

	_, err := svc.Create(context.Background(), "user-1", CreateNovelInput{Genre: "wuxia"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Create() without title error = %v, want ErrValidation", err)
	}

	novel, err := svc.Create(context.Background(), "user-1", CreateNovelInput{
		Title: "雾海", Genre: "wuxia",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if novel.ID == "" || novel.UserID != "user-1" {
		t.Errorf("unexpected novel: %+v", novel)
	}
}
