package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

func newTestAdminAuth(t *testing.T, password string) *adminAuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return NewAdminAuthService(logger.NewNop(), string(hash), "test-secret", time.Hour).(*adminAuthService)
}

func TestAdminLoginAndVerify(t *testing.T) {
	as := newTestAdminAuth(t, "hunter2")
	ctx := context.Background()

	token, err := as.Login(ctx, "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := as.VerifyToken(ctx, token); err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if _, err := as.Login(ctx, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAdminTokenExpires(t *testing.T) {
	as := newTestAdminAuth(t, "pw")
	ctx := context.Background()
	token, err := as.Login(ctx, "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	as.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if err := as.VerifyToken(ctx, token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestAdminTokenWrongSecret(t *testing.T) {
	as := newTestAdminAuth(t, "pw")
	other := newTestAdminAuth(t, "pw")
	other.jwtSecretKey = []byte("other-secret")

	token, err := other.Login(context.Background(), "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := as.VerifyToken(context.Background(), token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestAdminAuthDisabled(t *testing.T) {
	as := NewAdminAuthService(logger.NewNop(), "", "", 0)
	if as.Enabled() {
		t.Fatalf("expected disabled")
	}
	if err := as.VerifyToken(context.Background(), ""); err != nil {
		t.Fatalf("disabled auth must accept every request: %v", err)
	}
	if _, err := as.Login(context.Background(), "x"); !errors.Is(err, ErrAuthDisabled) {
		t.Fatalf("expected ErrAuthDisabled, got %v", err)
	}
}
