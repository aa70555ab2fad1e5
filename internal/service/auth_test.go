package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/infra/observability"
	"github.com/nexora/nexora-bfa-go/internal/infra/store"
	"github.com/nexora/nexora-bfa-go/internal/service"
	"github.com/nexora/nexora-bfa-go/internal/session"

	"go.uber.org/zap"
)

func newSession(t *testing.T, auth *mockAuthenticator) (*session.Session, *store.MemoryStore) {
	t.Helper()
	kv := store.NewMemoryStore(0)
	t.Cleanup(kv.Close)
	return session.New("sess-9", kv, auth, observability.NewMetrics(), zap.NewNop()), kv
}

func TestAuthService_Login(t *testing.T) {
	auth := &mockAuthenticator{result: &domain.AuthResult{
		Token: "jwt-1",
		User:  &domain.User{ID: "3", Email: "owner@acme.in", FullName: "Owner"},
	}}
	sess, kv := newSession(t, auth)
	svc := service.NewAuthService(auth, zap.NewNop())

	info, err := svc.Login(context.Background(), sess, &domain.LoginRequest{Email: "owner@acme.in", Password: "secret"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if info.State != string(session.Authenticated) || info.User == nil || info.User.Email != "owner@acme.in" {
		t.Errorf("unexpected session info %+v", info)
	}
	if tok, ok, _ := kv.Get(context.Background(), session.KeyToken); !ok || tok != "jwt-1" {
		t.Errorf("expected token persisted, got %q", tok)
	}
}

func TestAuthService_LoginValidation(t *testing.T) {
	auth := &mockAuthenticator{}
	sess, _ := newSession(t, auth)
	svc := service.NewAuthService(auth, zap.NewNop())

	_, err := svc.Login(context.Background(), sess, &domain.LoginRequest{Email: "not-an-email", Password: "x"})
	var v *domain.ErrValidation
	if !errors.As(err, &v) || v.Field != "email" {
		t.Fatalf("expected ErrValidation on email, got %v", err)
	}
	if auth.calls != 0 {
		t.Error("expected no remote call for invalid input")
	}
	if sess.State() != session.Anonymous {
		t.Errorf("expected session to stay anonymous, got %s", sess.State())
	}
}

func TestAuthService_LoginRejected(t *testing.T) {
	auth := &mockAuthenticator{err: &domain.ErrUnauthorized{Status: 401, Message: "Invalid credentials"}}
	sess, _ := newSession(t, auth)
	svc := service.NewAuthService(auth, zap.NewNop())

	_, err := svc.Login(context.Background(), sess, &domain.LoginRequest{Email: "owner@acme.in", Password: "wrong"})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if sess.State() != session.Anonymous {
		t.Errorf("expected session back to anonymous, got %s", sess.State())
	}
}

func TestAuthService_RegisterThenLogout(t *testing.T) {
	auth := &mockAuthenticator{result: &domain.AuthResult{Token: "jwt-2", User: &domain.User{ID: "8", Email: "new@acme.in"}}}
	sess, kv := newSession(t, auth)
	svc := service.NewAuthService(auth, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, sess, &domain.RegisterRequest{Email: "new@acme.in", Password: "secret1", FullName: "New Owner"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Logout(ctx, sess); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sess.State() != session.LoggedOut {
		t.Errorf("expected logged out, got %s", sess.State())
	}
	for _, key := range []string{session.KeyToken, session.KeyUser} {
		if _, ok, _ := kv.Get(ctx, key); ok {
			t.Errorf("expected %s removed", key)
		}
	}
}

func TestAuthService_RegisterShortPassword(t *testing.T) {
	auth := &mockAuthenticator{}
	sess, _ := newSession(t, auth)
	svc := service.NewAuthService(auth, zap.NewNop())

	_, err := svc.Register(context.Background(), sess, &domain.RegisterRequest{Email: "a@b.in", Password: "123", FullName: "A"})
	var v *domain.ErrValidation
	if !errors.As(err, &v) || v.Field != "password" {
		t.Fatalf("expected ErrValidation on password, got %v", err)
	}
}
