package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"inkflow/internal/domain"
)

// AccessTokenIssuer mints and verifies HS256 bearer tokens for API access.
// The subject claim carries the user id.
type AccessTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	logger *slog.Logger

	now func() time.Time
}

// NewAccessTokenIssuer creates an issuer with the given signing secret and
// token lifetime.
func NewAccessTokenIssuer(secret string, ttl time.Duration, logger *slog.Logger) *AccessTokenIssuer {
	return &AccessTokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Issue creates a signed access token for the user.
func (i *AccessTokenIssuer) Issue(userID string) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// Verify validates a token and returns the user id it was issued for.
// Any parse, signature, or expiry failure maps to ErrUnauthorized.
func (i *AccessTokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		i.logger.Debug("access token rejected", "error", err)
		return "", domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", domain.ErrUnauthorized
	}

	return claims.Subject, nil
}
