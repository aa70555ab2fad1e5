package service

import (
	"context"
	"fmt"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/port"
	"github.com/nexora/nexora-bfa-go/internal/wire"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AuthSession is the part of a session the login flows drive.
// *session.Session satisfies it.
type AuthSession interface {
	ID() string
	Info() domain.SessionInfo
	BeginLogin() error
	FailLogin()
	CompleteLogin(ctx context.Context, res *domain.AuthResult) error
	Logout(ctx context.Context) error
}

// AuthService exchanges credentials with the backend and records the result
// in the caller's session.
type AuthService struct {
	auth   port.Authenticator
	logger *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(auth port.Authenticator, logger *zap.Logger) *AuthService {
	return &AuthService{auth: auth, logger: logger}
}

// Login authenticates with email and password.
func (s *AuthService) Login(ctx context.Context, sess AuthSession, req *domain.LoginRequest) (*domain.SessionInfo, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sess.ID()))

	if err := wire.ValidateInput(req); err != nil {
		return nil, err
	}
	return s.exchange(ctx, sess, "login", func(ctx context.Context) (*domain.AuthResult, error) {
		return s.auth.Login(ctx, req)
	})
}

// Register creates an account and logs the session into it.
func (s *AuthService) Register(ctx context.Context, sess AuthSession, req *domain.RegisterRequest) (*domain.SessionInfo, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sess.ID()))

	if err := wire.ValidateInput(req); err != nil {
		return nil, err
	}
	return s.exchange(ctx, sess, "register", func(ctx context.Context) (*domain.AuthResult, error) {
		return s.auth.Register(ctx, req)
	})
}

// Logout clears the session's stored credentials.
func (s *AuthService) Logout(ctx context.Context, sess AuthSession) error {
	ctx, span := tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if err := sess.Logout(ctx); err != nil {
		return err
	}
	s.logger.Info("session logged out", zap.String("session_id", sess.ID()))
	return nil
}

func (s *AuthService) exchange(ctx context.Context, sess AuthSession, op string, call func(ctx context.Context) (*domain.AuthResult, error)) (*domain.SessionInfo, error) {
	if err := sess.BeginLogin(); err != nil {
		return nil, err
	}

	res, err := call(ctx)
	if err != nil {
		sess.FailLogin()
		s.logger.Warn(op+" failed",
			zap.String("session_id", sess.ID()),
			zap.String("kind", domain.ErrorKind(err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := sess.CompleteLogin(ctx, res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info := sess.Info()
	s.logger.Info(op+" succeeded", zap.String("session_id", sess.ID()))
	return &info, nil
}
