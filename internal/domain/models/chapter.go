package models

import "time"

// ChapterStatus is the generation state machine for a chapter.
// Transitions: generating -> completed | failed. Terminal states never
// transition out; a retry mints a new session on the same row.
type ChapterStatus string

const (
	ChapterStatusGenerating ChapterStatus = "generating"
	ChapterStatusCompleted  ChapterStatus = "completed"
	ChapterStatusFailed     ChapterStatus = "failed"
)

// Valid reports whether s is a known status value. Unknown values read from
// storage are treated as data errors by callers, not panics.
func (s ChapterStatus) Valid() bool {
	switch s {
	case ChapterStatusGenerating, ChapterStatusCompleted, ChapterStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s ChapterStatus) Terminal() bool {
	return s == ChapterStatusCompleted || s == ChapterStatusFailed
}

// Chapter is one generated chapter of a novel.
//
// ContentLength is the content's length in Unicode code points, kept in sync
// with Content on every durable write so delta computation never has to
// re-count. SessionID identifies the current (or last) generation attempt;
// resume tokens bound to a superseded session are rejected.
type Chapter struct {
	ID                    string        `json:"id"`
	NovelID               string        `json:"novel_id"`
	ChapterNumber         int           `json:"chapter_number"`
	Title                 string        `json:"title"`
	Summary               string        `json:"summary"`
	Content               string        `json:"content"`
	ContentLength         int           `json:"content_length"`
	Status                ChapterStatus `json:"status"`
	SessionID             *string       `json:"session_id,omitempty"`
	GenerationStartedAt   *time.Time    `json:"generation_started_at,omitempty"`
	GenerationCompletedAt *time.Time    `json:"generation_completed_at,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}
