package lorem

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"inkflow/internal/service/llm"
)

func TestStreamChapterDeliversResult(t *testing.T) {
	p := NewProvider(0, 30)

	chunks, err := p.StreamChapter(context.Background(), &llm.ChapterRequest{})
	if err != nil {
		t.Fatalf("StreamChapter() error = %v", err)
	}

	var streamed strings.Builder
	var result *llm.ChapterResult
	for c := range chunks {
		switch {
		case c.Err != nil:
			t.Fatalf("unexpected chunk error: %v", c.Err)
		case c.Result != nil:
			result = c.Result
		default:
			streamed.WriteString(c.Delta)
		}
	}

	if result == nil {
		t.Fatal("stream ended without a result")
	}
	if result.Content != strings.TrimSpace(streamed.String()) {
		t.Error("final content does not match the streamed deltas")
	}
	if len(result.Options) != 3 {
		t.Errorf("options = %d, want 3", len(result.Options))
	}
}

func TestStreamChapterStopsWhenConsumerLeaves(t *testing.T) {
	p := NewProvider(0, 5000)
	ctx, cancel := context.WithCancel(context.Background())
	before := runtime.NumGoroutine()

	chunks, err := p.StreamChapter(ctx, &llm.ChapterRequest{})
	if err != nil {
		t.Fatalf("StreamChapter() error = %v", err)
	}
	if _, ok := <-chunks; !ok {
		t.Fatal("stream closed before the first chunk")
	}

	// Walk away from the channel mid-stream; the producer has to notice the
	// cancellation on its own even with its buffer full.
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("producer goroutine still running after cancellation")
}

func TestStreamChapterReportsCancellation(t *testing.T) {
	p := NewProvider(time.Millisecond, 5000)
	ctx, cancel := context.WithCancel(context.Background())

	chunks, err := p.StreamChapter(ctx, &llm.ChapterRequest{})
	if err != nil {
		t.Fatalf("StreamChapter() error = %v", err)
	}
	if _, ok := <-chunks; !ok {
		t.Fatal("stream closed before the first chunk")
	}
	cancel()

	// Keep draining: the stream must terminate with a context error, not hang.
	var last llm.Chunk
	for c := range chunks {
		last = c
	}
	if !errors.Is(last.Err, context.Canceled) {
		t.Errorf("terminal chunk error = %v, want context.Canceled", last.Err)
	}
}
