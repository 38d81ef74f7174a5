package generation

import (
	"context"
	"log/slog"
	"time"

	"inkflow/internal/domain/models"
	"inkflow/internal/domain/repositories"
)

// Relay poll parameters. A delta-free minute means the producer died without
// a terminal transition (or the client is watching a chapter nothing is
// generating); the stream ends with a timeout error either way so no client
// hangs forever.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultIdleLimit    = 600
)

// TokenMinter produces a resume token for a delivery cursor. Wired to the
// resume token codec in production; nil disables tokens (tests).
type TokenMinter func(chapterID, sessionID, novelID, userID string, sentLength int) (string, error)

// Relay turns one chapter's generation state into an ordered client event
// stream: at most one summary, any number of content deltas, exactly one
// terminal event (complete or error).
//
// Each Relay stream owns its own cursor. Concurrent streams over the same
// chapter each diff independently against the same underlying state, so
// every client converges on the same text without shared state.
type Relay struct {
	chapters repositories.ChapterRepository
	options  repositories.OptionRepository
	cache    Cache
	mint     TokenMinter
	logger   *slog.Logger

	pollInterval time.Duration
	idleLimit    int
}

// NewRelay creates a relay with default poll parameters.
func NewRelay(
	chapters repositories.ChapterRepository,
	options repositories.OptionRepository,
	cache Cache,
	mint TokenMinter,
	logger *slog.Logger,
) *Relay {
	return &Relay{
		chapters:     chapters,
		options:      options,
		cache:        cache,
		mint:         mint,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		idleLimit:    DefaultIdleLimit,
	}
}

// Stream starts polling the chapter and returns the event channel. The
// channel is closed after the terminal event or when ctx is cancelled.
// Returns ErrNotFound without starting a stream if the chapter is missing.
func (r *Relay) Stream(ctx context.Context, chapterID, userID string) (<-chan Event, error) {
	chapter, err := r.chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	events := make(chan Event, 10)
	go r.poll(ctx, chapter.ID, chapter.NovelID, userID, events)
	return events, nil
}

func (r *Relay) poll(ctx context.Context, chapterID, novelID, userID string, events chan<- Event) {
	defer close(events)

	sent := 0 // delivery cursor in code points
	titleSent := false
	idle := 0

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		chapter, err := r.chapters.GetByID(ctx, chapterID)
		if err != nil {
			r.logger.Error("relay failed to read chapter", "chapter_id", chapterID, "error", err)
			r.send(ctx, events, Event{EventError, ErrorData{Error: "failed to read chapter state"}})
			return
		}

		switch chapter.Status {
		case models.ChapterStatusCompleted:
			opts, err := r.options.ListByChapter(ctx, chapterID)
			if err != nil {
				r.logger.Error("relay failed to read options", "chapter_id", chapterID, "error", err)
				r.send(ctx, events, Event{EventError, ErrorData{Error: "failed to read chapter options"}})
				return
			}
			r.send(ctx, events, Event{EventComplete, CompleteData{
				ChapterID: chapter.ID,
				Title:     chapter.Title,
				Content:   chapter.Content,
				Options:   opts,
			}})
			return

		case models.ChapterStatusFailed:
			r.send(ctx, events, Event{EventError, ErrorData{Error: "chapter generation failed"}})
			return

		case models.ChapterStatusGenerating:
			snap, err := r.cache.Get(ctx, chapterID)
			if err != nil {
				// Cache unreachable. The durable fallback below may lag but
				// keeps the stream alive; the idle limit still bounds it.
				r.logger.Warn("relay cache read failed, using store content",
					"chapter_id", chapterID, "error", err)
				snap = nil
			}

			title, content, sessionID := chapter.Title, chapter.Content, ""
			if chapter.SessionID != nil {
				sessionID = *chapter.SessionID
			}
			if snap != nil {
				title, content, sessionID = snap.Title, snap.Content, snap.SessionID
			}

			if !titleSent && title != "" {
				if !r.send(ctx, events, Event{EventSummary, SummaryData{Title: title}}) {
					return
				}
				titleSent = true
			}

			runes := []rune(content)
			if len(runes) > sent {
				data := ContentData{Text: string(runes[sent:]), SentLength: len(runes)}
				data.ResumeToken = r.mintToken(chapterID, sessionID, novelID, userID, len(runes))
				if !r.send(ctx, events, Event{EventContent, data}) {
					return
				}
				sent = len(runes)
				idle = 0
			} else {
				idle++
				if idle >= r.idleLimit {
					r.send(ctx, events, Event{EventError, ErrorData{Error: "generation timed out"}})
					return
				}
			}

		default:
			// Unknown status value in storage: data error, terminal.
			r.logger.Error("relay read unknown chapter status",
				"chapter_id", chapterID, "status", chapter.Status)
			r.send(ctx, events, Event{EventError, ErrorData{Error: "invalid chapter state"}})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// send delivers an event, giving up when the consumer is gone.
// Returns false when the context ended before delivery.
func (r *Relay) send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// mintToken returns a resume token for the cursor, or "" when minting is
// disabled or fails (the stream stays usable without resume).
func (r *Relay) mintToken(chapterID, sessionID, novelID, userID string, sentLength int) string {
	if r.mint == nil || sessionID == "" {
		return ""
	}
	token, err := r.mint(chapterID, sessionID, novelID, userID, sentLength)
	if err != nil {
		r.logger.Warn("failed to mint resume token", "chapter_id", chapterID, "error", err)
		return ""
	}
	return token
}
