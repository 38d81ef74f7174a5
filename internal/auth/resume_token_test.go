package auth

import (
	"errors"
	"testing"
	"time"

	"inkflow/internal/domain"
)

func newTestCodec(t *testing.T) *ResumeTokenCodec {
	t.Helper()
	return NewResumeTokenCodec("test-secret", 10*time.Minute)
}

func TestResumeTokenRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.Mint("ch-1", "sess-1", "nov-1", "user-1", 50)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	claims, err := codec.Verify(signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if claims.ChapterID != "ch-1" {
		t.Errorf("ChapterID: got %q, want %q", claims.ChapterID, "ch-1")
	}
	if claims.SessionID != "sess-1" {
		t.Errorf("SessionID: got %q, want %q", claims.SessionID, "sess-1")
	}
	if claims.NovelID != "nov-1" {
		t.Errorf("NovelID: got %q, want %q", claims.NovelID, "nov-1")
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID: got %q, want %q", claims.UserID, "user-1")
	}
	if claims.SentLength != 50 {
		t.Errorf("SentLength: got %d, want 50", claims.SentLength)
	}
}

func TestResumeTokenExpiry(t *testing.T) {
	codec := newTestCodec(t)

	base := time.Now()
	codec.now = func() time.Time { return base }

	signed, err := codec.Mint("ch-1", "sess-1", "nov-1", "user-1", 0)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Advance the clock past the 10 minute TTL
	codec.now = func() time.Time { return base.Add(11 * time.Minute) }

	if _, err := codec.Verify(signed); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expired token: got %v, want ErrValidation", err)
	}
}

func TestResumeTokenWrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other := NewResumeTokenCodec("other-secret", 10*time.Minute)

	signed, err := other.Mint("ch-1", "sess-1", "nov-1", "user-1", 0)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := codec.Verify(signed); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("foreign signature: got %v, want ErrValidation", err)
	}
}

func TestResumeTokenRejectsAccessToken(t *testing.T) {
	logger := discardLogger()
	issuer := NewAccessTokenIssuer("test-secret", time.Hour, logger)

	access, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	codec := newTestCodec(t)
	if _, err := codec.Verify(access); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("access token as resume token: got %v, want ErrValidation", err)
	}
}

func TestResumeTokenGarbage(t *testing.T) {
	codec := newTestCodec(t)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := codec.Verify(tok); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Verify(%q): got %v, want ErrValidation", tok, err)
		}
	}
}
