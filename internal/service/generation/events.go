package generation

import "inkflow/internal/domain/models"

// SSE event names emitted by the relay and resume streams.
const (
	EventSummary    = "summary"
	EventContent    = "content"
	EventComplete   = "complete"
	EventError      = "error"
	EventStatus     = "status"
	EventGenerating = "generating"
)

// Event is one element of a client-facing stream. Name selects the SSE event
// type; Data is JSON-encoded as the event payload.
type Event struct {
	Name string
	Data any
}

// SummaryData announces the chapter title, sent at most once per stream.
type SummaryData struct {
	Title string `json:"title"`
}

// ContentData carries an incremental text delta. SentLength is the client's
// new cursor (total code points delivered) and ResumeToken reattaches a
// disconnected client at exactly that cursor.
type ContentData struct {
	Text        string `json:"text"`
	SentLength  int    `json:"sent_length"`
	ResumeToken string `json:"resume_token,omitempty"`
}

// CompleteData is the successful terminal event with the full chapter.
type CompleteData struct {
	ChapterID string          `json:"chapter_id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Options   []models.Option `json:"options"`
}

// ErrorData is the failure terminal event.
type ErrorData struct {
	Error string `json:"error"`
}

// NoticeData carries status and generating notices on resume streams.
// ResumeToken is set on generating notices so the client can come back again.
type NoticeData struct {
	Message     string `json:"message"`
	ResumeToken string `json:"resume_token,omitempty"`
}
