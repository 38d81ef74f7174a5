// Package moonshot implements the chapter provider against the Moonshot
// (Kimi) OpenAI-compatible chat completions API.
package moonshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"inkflow/internal/domain/models"
	"inkflow/internal/service/llm"
	"inkflow/internal/service/llm/extract"
)

const defaultBaseURL = "https://api.moonshot.cn/v1"

// Provider streams chapters from the Moonshot API.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	prompts *llm.PromptLibrary
	logger  *slog.Logger
}

// NewProvider creates a Moonshot provider. An empty baseURL uses the public
// endpoint; overriding it is how tests point the provider at a local server.
func NewProvider(apiKey, baseURL, model string, prompts *llm.PromptLibrary, logger *slog.Logger) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 5 * time.Minute},
		prompts: prompts,
		logger:  logger,
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "moonshot"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	Stream         bool          `json:"stream"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

// GenerateOutline produces the chapter title and summary in one blocking call
func (p *Provider) GenerateOutline(ctx context.Context, req *llm.ChapterRequest) (*llm.Outline, error) {
	prompts := p.prompts.ForGenre(req.Novel.Genre)

	body := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.System},
			{Role: "user", Content: prompts.RenderOutline(req)},
		},
		Temperature:    0.7,
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	resp, err := p.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode outline response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("outline response has no choices")
	}

	var outline struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &outline); err != nil {
		return nil, fmt.Errorf("decode outline document: %w", err)
	}
	if outline.Title == "" {
		return nil, fmt.Errorf("outline document has empty title")
	}

	return &llm.Outline{Title: outline.Title, Summary: outline.Summary}, nil
}

// StreamChapter streams the chapter body. The model emits one JSON document;
// the raw stream is accumulated here and only normalized plain-text deltas
// leave the provider.
func (p *Provider) StreamChapter(ctx context.Context, req *llm.ChapterRequest) (<-chan llm.Chunk, error) {
	prompts := p.prompts.ForGenre(req.Novel.Genre)

	body := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.System},
			{Role: "user", Content: prompts.RenderChapter(req)},
		},
		Temperature: 0.8,
		Stream:      true,
	}

	resp, err := p.post(ctx, body)
	if err != nil {
		return nil, err
	}

	chunks := make(chan llm.Chunk, 10)

	go func() {
		defer resp.Body.Close()
		defer close(chunks)

		var raw strings.Builder
		sentPlain := 0

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					// Stream ended without [DONE]; try to salvage the document
					p.finish(ctx, chunks, raw.String())
				} else {
					p.send(ctx, chunks, llm.Chunk{Err: fmt.Errorf("read stream: %w", err)})
				}
				return
			}

			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, ":") {
				continue
			}
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}

			if data == "[DONE]" {
				p.finish(ctx, chunks, raw.String())
				return
			}

			var event struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				p.logger.Warn("skipping malformed stream event", "error", err)
				continue
			}
			if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
				continue
			}

			raw.WriteString(event.Choices[0].Delta.Content)

			// Extractions grow monotonically, so the suffix past sentPlain
			// is exactly the text not yet forwarded.
			plain := extract.Content(raw.String())
			if len(plain) > sentPlain {
				if !p.send(ctx, chunks, llm.Chunk{Delta: plain[sentPlain:]}) {
					return
				}
				sentPlain = len(plain)
			}
		}
	}()

	return chunks, nil
}

// finish parses the completed document and emits the terminal chunk
func (p *Provider) finish(ctx context.Context, chunks chan<- llm.Chunk, raw string) {
	result, err := extract.Parse(raw)
	if err != nil {
		p.send(ctx, chunks, llm.Chunk{Err: fmt.Errorf("malformed completion payload: %w", err)})
		return
	}

	p.send(ctx, chunks, llm.Chunk{Result: &llm.ChapterResult{
		Content: result.Content,
		Summary: result.Summary,
		Options: convertOptions(result.Options),
	}})
}

// send delivers a chunk unless the context ends first. A blocked send must
// never outlive the consumer; cancellation is the release valve.
func (p *Provider) send(ctx context.Context, chunks chan<- llm.Chunk, c llm.Chunk) bool {
	select {
	case chunks <- c:
		return true
	case <-ctx.Done():
		select {
		case chunks <- llm.Chunk{Err: ctx.Err()}:
		default:
		}
		return false
	}
}

func (p *Provider) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	if body.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call moonshot: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("moonshot API error (%d): %s", resp.StatusCode, msg)
	}

	return resp, nil
}

// convertOptions maps the model's option documents onto domain drafts,
// clamping weight factors into [0,1].
func convertOptions(opts []extract.Option) []llm.OptionDraft {
	drafts := make([]llm.OptionDraft, 0, len(opts))
	for _, opt := range opts {
		draft := llm.OptionDraft{
			Text:       opt.Text,
			ImpactHint: opt.ImpactHint,
		}
		if len(opt.Tags) > 0 {
			draft.Tags = &models.OptionTags{
				ActionType:      opt.Tags["action_type"],
				NarrativeImpact: opt.Tags["narrative_impact"],
				CharacterFocus:  opt.Tags["character_focus"],
				Pacing:          opt.Tags["pacing"],
				EmotionalTone:   opt.Tags["emotional_tone"],
			}
		}
		if len(opt.WeightFactors) > 0 {
			draft.WeightFactors = &models.OptionWeightFactors{
				RiskPreference:    clamp01(opt.WeightFactors["risk_preference"]),
				ExplorationDesire: clamp01(opt.WeightFactors["exploration_desire"]),
				PacingPreference:  clamp01(opt.WeightFactors["pacing_preference"]),
				RelationshipFocus: clamp01(opt.WeightFactors["relationship_focus"]),
				ActionOrientation: clamp01(opt.WeightFactors["action_orientation"]),
			}
		}
		drafts = append(drafts, draft)
	}
	return drafts
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
