package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"inkflow/internal/domain"
)

// resumeTokenType distinguishes resume tokens from access tokens so one can
// never be replayed as the other.
const resumeTokenType = "resume"

// DefaultResumeTokenTTL bounds how long a disconnected client may wait before
// reconnecting with the same token.
const DefaultResumeTokenTTL = 10 * time.Minute

// ResumeClaims is the payload of a resume token: enough to re-locate the
// exact generation session and the client's delivery cursor. SentLength is
// counted in Unicode code points of the content already delivered.
type ResumeClaims struct {
	ChapterID  string `json:"chapter_id"`
	SessionID  string `json:"session_id"`
	NovelID    string `json:"novel_id"`
	UserID     string `json:"user_id"`
	SentLength int    `json:"sent_length"`
	Type       string `json:"type"`
	jwt.RegisteredClaims
}

// ResumeTokenCodec signs and verifies resume tokens with HS256.
// Tokens are pure bearer capabilities; nothing is persisted server-side.
type ResumeTokenCodec struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

// NewResumeTokenCodec creates a codec with the given signing secret.
// A non-positive ttl falls back to DefaultResumeTokenTTL.
func NewResumeTokenCodec(secret string, ttl time.Duration) *ResumeTokenCodec {
	if ttl <= 0 {
		ttl = DefaultResumeTokenTTL
	}
	return &ResumeTokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Mint creates a signed resume token for the given session and cursor.
func (c *ResumeTokenCodec) Mint(chapterID, sessionID, novelID, userID string, sentLength int) (string, error) {
	now := c.now()
	claims := ResumeClaims{
		ChapterID:  chapterID,
		SessionID:  sessionID,
		NovelID:    novelID,
		UserID:     userID,
		SentLength: sentLength,
		Type:       resumeTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign resume token: %w", err)
	}

	return signed, nil
}

// Verify validates a resume token and returns its claims. Signature, expiry,
// type, and required-field failures all map to ErrValidation: a bad resume
// token is a malformed request, not an authentication failure.
func (c *ResumeTokenCodec) Verify(tokenString string) (*ResumeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResumeClaims{},
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid resume token", domain.ErrValidation)
	}

	claims, ok := token.Claims.(*ResumeClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid resume token", domain.ErrValidation)
	}

	if claims.Type != resumeTokenType {
		return nil, fmt.Errorf("%w: token is not a resume token", domain.ErrValidation)
	}
	if claims.ChapterID == "" || claims.SessionID == "" || claims.UserID == "" {
		return nil, fmt.Errorf("%w: resume token missing required claims", domain.ErrValidation)
	}
	if claims.SentLength < 0 {
		return nil, fmt.Errorf("%w: resume token has negative cursor", domain.ErrValidation)
	}

	return claims, nil
}
