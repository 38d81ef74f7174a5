package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkflow/internal/auth"
	"inkflow/internal/domain"
)

func newTestAuthService() *AuthService {
	issuer := auth.NewAccessTokenIssuer("test-secret", time.Hour, testLogger())
	return NewAuthService(newMemUserRepo(), issuer, testLogger())
}

func TestAuthRegisterAndLogin(t *testing.T) {
	svc := newTestAuthService()

	reg, err := svc.Register(context.Background(), RegisterInput{
		Name: "李明", Email: "li@example.com", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.User.ID == "" || reg.Token == "" {
		t.Fatalf("incomplete result: %+v", reg)
	}
	if reg.User.PasswordHash == "correct horse" {
		t.Error("password stored unhashed")
	}

	login, err := svc.Login(context.Background(), LoginInput{
		Email: "li@example.com", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Errorf("login user = %s, want %s", login.User.ID, reg.User.ID)
	}
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc := newTestAuthService()
	if _, err := svc.Register(context.Background(), RegisterInput{
		Name: "李明", Email: "li@example.com", Password: "correct horse",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Login(context.Background(), LoginInput{
		Email: "li@example.com", Password: "wrong",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
	}
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	svc := newTestAuthService()
	_, err := svc.Login(context.Background(), LoginInput{
		Email: "nobody@example.com", Password: "whatever",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized (not ErrNotFound)", err)
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	svc := newTestAuthService()

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"missing email", RegisterInput{Name: "a", Password: "long enough"}},
		{"bad email", RegisterInput{Name: "a", Email: "not-an-email", Password: "long enough"}},
		{"short password", RegisterInput{Name: "a", Email: "a@example.com", Password: "short"}},
		{"missing name", RegisterInput{Email: "a@example.com", Password: "long enough"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.input)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	svc := newTestAuthService()
	input := RegisterInput{Name: "李明", Email: "li@example.com", Password: "correct horse"}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Register(context.Background(), input)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second Register() error = %v, want ErrConflict", err)
	}
}
