package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the in-flight generation state for one chapter. Content is
// always the full accumulated text, never a delta; every Set overwrites the
// previous value completely.
type Snapshot struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// ChapterCache stores generation snapshots in Redis, keyed by chapter id.
//
// Entries carry no TTL: while a generation is live its snapshot must not
// expire, and terminal transitions delete the entry explicitly. Absence of an
// entry means "not generating" as far as the cache is concerned; callers
// disambiguate against the chapter's durable status.
type ChapterCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewChapterCache creates a chapter cache on an injected Redis client.
func NewChapterCache(client *redis.Client, logger *slog.Logger) *ChapterCache {
	return &ChapterCache{
		client: client,
		logger: logger,
	}
}

func generatingKey(chapterID string) string {
	return fmt.Sprintf("chapter:%s:generating", chapterID)
}

// Set overwrites the chapter's snapshot with the full accumulated state.
func (c *ChapterCache) Set(ctx context.Context, chapterID string, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := c.client.Set(ctx, generatingKey(chapterID), payload, 0).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}

	return nil
}

// Get reads the chapter's snapshot. Returns (nil, nil) when the entry is
// absent. A malformed payload is treated as absent and logged: the poll loop
// must fall back to the durable store, not crash.
func (c *ChapterCache) Get(ctx context.Context, chapterID string) (*Snapshot, error) {
	data, err := c.client.Get(ctx, generatingKey(chapterID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		c.logger.Warn("malformed chapter snapshot in cache, treating as absent",
			"chapter_id", chapterID,
			"error", err,
		)
		return nil, nil
	}

	return snap, nil
}

// Delete removes the chapter's snapshot. Absent is not an error.
func (c *ChapterCache) Delete(ctx context.Context, chapterID string) error {
	if err := c.client.Del(ctx, generatingKey(chapterID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
