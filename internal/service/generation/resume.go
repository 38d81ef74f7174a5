package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inkflow/internal/auth"
	"inkflow/internal/domain"
	"inkflow/internal/domain/models"
	"inkflow/internal/domain/repositories"
)

// Resume pacing. The undelivered suffix is already known in full when a
// client reconnects; it is streamed in slices purely so the client renders a
// progressive reveal instead of a text dump.
const (
	DefaultResumeSliceRunes = 50
	DefaultResumeSliceDelay = 50 * time.Millisecond
)

// Resumer replays the undelivered content suffix to a reconnecting client.
type Resumer struct {
	chapters repositories.ChapterRepository
	options  repositories.OptionRepository
	cache    Cache
	codec    *auth.ResumeTokenCodec
	logger   *slog.Logger

	sliceRunes int
	sliceDelay time.Duration
}

// NewResumer creates a resumer with default pacing.
func NewResumer(
	chapters repositories.ChapterRepository,
	options repositories.OptionRepository,
	cache Cache,
	codec *auth.ResumeTokenCodec,
	logger *slog.Logger,
) *Resumer {
	return &Resumer{
		chapters:   chapters,
		options:    options,
		cache:      cache,
		codec:      codec,
		logger:     logger,
		sliceRunes: DefaultResumeSliceRunes,
		sliceDelay: DefaultResumeSliceDelay,
	}
}

// Resume verifies the token, checks it against the chapter's current session,
// and returns an event stream delivering exactly the content the client has
// not seen. Token and session problems are returned synchronously:
// ErrValidation for malformed/expired/stale tokens, ErrForbidden for a token
// belonging to a different user, ErrNotFound for a vanished chapter.
func (r *Resumer) Resume(ctx context.Context, token, userID string) (<-chan Event, error) {
	claims, err := r.codec.Verify(token)
	if err != nil {
		return nil, err
	}

	if claims.UserID != userID {
		return nil, fmt.Errorf("%w: resume token belongs to another user", domain.ErrForbidden)
	}

	chapter, err := r.chapters.GetByID(ctx, claims.ChapterID)
	if err != nil {
		return nil, err
	}
	if claims.NovelID != "" && chapter.NovelID != claims.NovelID {
		return nil, fmt.Errorf("%w: resume token does not match chapter", domain.ErrValidation)
	}

	// Current session and content: the cache is authoritative while
	// generating, the durable row after a terminal transition.
	snap, err := r.cache.Get(ctx, claims.ChapterID)
	if err != nil {
		r.logger.Warn("resume cache read failed, using store content",
			"chapter_id", claims.ChapterID, "error", err)
		snap = nil
	}

	sessionID := ""
	if chapter.SessionID != nil {
		sessionID = *chapter.SessionID
	}
	content := chapter.Content
	if snap != nil {
		sessionID = snap.SessionID
		content = snap.Content
	}

	if sessionID == "" || sessionID != claims.SessionID {
		return nil, fmt.Errorf("%w: resume token session is stale", domain.ErrValidation)
	}

	events := make(chan Event, 10)
	go r.replay(ctx, chapter, claims, sessionID, content, events)
	return events, nil
}

func (r *Resumer) replay(ctx context.Context, chapter *models.Chapter, claims *auth.ResumeClaims, sessionID, content string, events chan<- Event) {
	defer close(events)

	runes := []rune(content)
	sent := claims.SentLength
	if sent > len(runes) {
		// The cursor can only run ahead of the content if the token was
		// minted against a different attempt; the session check should have
		// caught that. Clamp and log rather than replaying from zero.
		r.logger.Warn("resume cursor beyond current content",
			"chapter_id", chapter.ID, "sent_length", sent, "content_length", len(runes))
		sent = len(runes)
	}

	if !r.send(ctx, events, Event{EventStatus, NoticeData{
		Message: fmt.Sprintf("resuming from position %d", sent),
	}}) {
		return
	}

	// Stream the undelivered suffix in fixed slices.
	for sent < len(runes) {
		end := sent + r.sliceRunes
		if end > len(runes) {
			end = len(runes)
		}

		data := ContentData{Text: string(runes[sent:end]), SentLength: end}
		data.ResumeToken = r.mintToken(chapter, sessionID, claims.UserID, end)
		if !r.send(ctx, events, Event{EventContent, data}) {
			return
		}
		sent = end

		if r.sliceDelay > 0 && sent < len(runes) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.sliceDelay):
			}
		}
	}

	// Status may have moved on while the diff streamed; re-read before
	// choosing the closing event.
	current, err := r.chapters.GetByID(ctx, chapter.ID)
	if err != nil {
		r.logger.Error("resume failed to re-read chapter", "chapter_id", chapter.ID, "error", err)
		r.send(ctx, events, Event{EventError, ErrorData{Error: "failed to read chapter state"}})
		return
	}

	switch current.Status {
	case models.ChapterStatusCompleted:
		opts, err := r.options.ListByChapter(ctx, chapter.ID)
		if err != nil {
			r.logger.Error("resume failed to read options", "chapter_id", chapter.ID, "error", err)
			r.send(ctx, events, Event{EventError, ErrorData{Error: "failed to read chapter options"}})
			return
		}
		r.send(ctx, events, Event{EventComplete, CompleteData{
			ChapterID: current.ID,
			Title:     current.Title,
			Content:   current.Content,
			Options:   opts,
		}})

	case models.ChapterStatusFailed:
		r.send(ctx, events, Event{EventError, ErrorData{Error: "chapter generation failed"}})

	default:
		// Still generating: hand the client a fresh token and let it open a
		// new resume or live stream when it wants more.
		r.send(ctx, events, Event{EventGenerating, NoticeData{
			Message:     "generation in progress",
			ResumeToken: r.mintToken(chapter, sessionID, claims.UserID, sent),
		}})
	}
}

func (r *Resumer) send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Resumer) mintToken(chapter *models.Chapter, sessionID, userID string, sentLength int) string {
	token, err := r.codec.Mint(chapter.ID, sessionID, chapter.NovelID, userID, sentLength)
	if err != nil {
		r.logger.Warn("failed to mint resume token", "chapter_id", chapter.ID, "error", err)
		return ""
	}
	return token
}
