package llm

import (
	"context"

	"inkflow/internal/domain/models"
)

// Outline is the structured pre-pass for a chapter: title and summary are
// produced before the body streams so clients can render a header immediately.
type Outline struct {
	Title   string
	Summary string
}

// OptionDraft is a branching option proposed by the model, not yet persisted.
type OptionDraft struct {
	Text          string
	ImpactHint    string
	Tags          *models.OptionTags
	WeightFactors *models.OptionWeightFactors
}

// ChapterResult is the completion payload terminating a chapter stream.
type ChapterResult struct {
	Content string
	Summary string
	Options []OptionDraft
}

// Chunk is one element of a chapter stream. Exactly one of the fields is
// meaningful: Delta for incremental text, Result for the final payload,
// Err for a producer failure. Result and Err both terminate the stream.
//
// Delta is always plain chapter text in the order it was generated. Providers
// that stream structured output normalize it before it leaves the provider;
// nothing downstream ever sees partial JSON.
type Chunk struct {
	Delta  string
	Result *ChapterResult
	Err    error
}

// ChapterRequest carries everything a provider needs to generate one chapter.
type ChapterRequest struct {
	Novel         *models.Novel
	ChapterNumber int
	Outline       *Outline
	// PreviousContent and ChosenOption give the model continuity context.
	// Both are empty for the first chapter.
	PreviousContent string
	ChosenOption    string
}

// Provider generates chapters. Implementations must emit chunks in order and
// close the channel after the terminal chunk.
type Provider interface {
	// Name returns the provider identifier used in config and logs.
	Name() string

	// GenerateOutline produces a chapter title and summary in one blocking call.
	GenerateOutline(ctx context.Context, req *ChapterRequest) (*Outline, error)

	// StreamChapter starts the chapter body stream. The returned channel
	// yields ordered Chunks and is closed by the provider after a Result or
	// Err chunk.
	StreamChapter(ctx context.Context, req *ChapterRequest) (<-chan Chunk, error)
}
