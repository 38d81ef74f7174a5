// Package lorem is a mock chapter provider that generates lorem ipsum text.
// Used for development and testing without real API keys.
package lorem

import (
	"context"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	"inkflow/internal/domain/models"
	"inkflow/internal/service/llm"
)

// Provider generates lorem ipsum chapters with a configurable word delay.
type Provider struct {
	generator *loremgen.Lorem
	delay     time.Duration
	words     int
}

// NewProvider creates a lorem provider. delay is the pause between streamed
// words (0 streams as fast as the consumer reads); words is the approximate
// chapter length.
func NewProvider(delay time.Duration, words int) *Provider {
	if words <= 0 {
		words = 300
	}
	return &Provider{
		generator: loremgen.New(),
		delay:     delay,
		words:     words,
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "lorem"
}

// GenerateOutline produces a random title and summary
func (p *Provider) GenerateOutline(ctx context.Context, req *llm.ChapterRequest) (*llm.Outline, error) {
	return &llm.Outline{
		Title:   p.generator.Sentence(3, 6),
		Summary: p.generator.Sentence(10, 20),
	}, nil
}

// StreamChapter streams lorem ipsum word by word, then emits a final result
// with three canned options.
func (p *Provider) StreamChapter(ctx context.Context, req *llm.ChapterRequest) (<-chan llm.Chunk, error) {
	chunks := make(chan llm.Chunk, 10)

	go func() {
		defer close(chunks)

		// Every send must stay cancellable: an abandoned consumer stops
		// reading, and a plain channel send would pin this goroutine forever.
		send := func(c llm.Chunk) bool {
			select {
			case chunks <- c:
				return true
			case <-ctx.Done():
				// Best effort; the consumer may already be gone.
				select {
				case chunks <- llm.Chunk{Err: ctx.Err()}:
				default:
				}
				return false
			}
		}

		var content strings.Builder
		wordCount := 0
		sinceBreak := 0

		for wordCount < p.words {
			sentence := p.generator.Sentence(5, 15)
			for _, word := range strings.Fields(sentence) {
				delta := word + " "
				content.WriteString(delta)
				if !send(llm.Chunk{Delta: delta}) {
					return
				}
				wordCount++
				sinceBreak++

				if p.delay > 0 {
					time.Sleep(p.delay)
				}
			}

			// Paragraph break every ~60 words
			if sinceBreak >= 60 {
				content.WriteString("\n\n")
				if !send(llm.Chunk{Delta: "\n\n"}) {
					return
				}
				sinceBreak = 0
			}
		}

		send(llm.Chunk{Result: &llm.ChapterResult{
			Content: strings.TrimSpace(content.String()),
			Summary: p.generator.Sentence(10, 20),
			Options: p.cannedOptions(),
		}})
	}()

	return chunks, nil
}

func (p *Provider) cannedOptions() []llm.OptionDraft {
	mk := func(action, impact, pacing string, risk float64) llm.OptionDraft {
		return llm.OptionDraft{
			Text:       p.generator.Sentence(4, 8),
			ImpactHint: p.generator.Sentence(5, 10),
			Tags: &models.OptionTags{
				ActionType:      action,
				NarrativeImpact: impact,
				CharacterFocus:  "self_growth",
				Pacing:          pacing,
				EmotionalTone:   "neutral",
			},
			WeightFactors: &models.OptionWeightFactors{
				RiskPreference:    risk,
				ExplorationDesire: 0.5,
				PacingPreference:  0.5,
				RelationshipFocus: 0.5,
				ActionOrientation: risk,
			},
		}
	}

	return []llm.OptionDraft{
		mk(models.ActionActive, models.ImpactDevelopment, models.PacingFast, 0.7),
		mk(models.ActionConservative, models.ImpactExploration, models.PacingSlow, 0.2),
		mk(models.ActionRisky, models.ImpactResolution, models.PacingMedium, 0.9),
	}
}
