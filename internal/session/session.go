// Package session holds the authenticated identity of one client: its bearer
// token, its user record and the lifecycle state that governs both.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/infra/observability"
	"github.com/nexora/nexora-bfa-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("session")

// Storage keys. Nothing else is persisted client-side.
const (
	KeyToken = "authToken"
	KeyUser  = "user"
)

// State is a session lifecycle state.
type State string

const (
	Anonymous      State = "anonymous"
	Authenticating State = "authenticating"
	Authenticated  State = "authenticated"
	Refreshing     State = "refreshing"
	Expired        State = "expired"
	LoggedOut      State = "logged_out"
)

var transitions = map[State][]State{
	Anonymous:      {Authenticating, Authenticated, Expired, LoggedOut},
	Authenticating: {Authenticated, Anonymous, LoggedOut},
	Authenticated:  {Authenticating, Refreshing, Expired, LoggedOut},
	Refreshing:     {Authenticated, LoggedOut},
	Expired:        {Authenticating, Refreshing, LoggedOut},
	LoggedOut:      {Authenticating},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Session is safe for concurrent use by the requests of one client.
type Session struct {
	id      string
	store   port.KVStore
	auth    port.Authenticator
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time

	refresh singleflight.Group

	mu    sync.Mutex
	state State
	token string
	user  *domain.User
}

// New creates an anonymous session backed by store. Call Restore to pick up
// previously persisted credentials.
func New(id string, store port.KVStore, auth port.Authenticator, metrics *observability.Metrics, logger *zap.Logger) *Session {
	return &Session{
		id:      id,
		store:   store,
		auth:    auth,
		metrics: metrics,
		logger:  logger.With(zap.String("session_id", id)),
		now:     time.Now,
		state:   Anonymous,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns a copy of the stored user, or nil.
func (s *Session) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Info describes the session for the presentation layer.
func (s *Session) Info() domain.SessionInfo {
	return domain.SessionInfo{ID: s.id, State: string(s.State()), User: s.User()}
}

// Token returns the bearer token or *domain.ErrNoSession when there is none.
func (s *Session) Token(op string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", &domain.ErrNoSession{Operation: op}
	}
	return s.token, nil
}

// Restore loads persisted credentials. A token whose exp claim is in the past
// restores as Expired; opaque tokens are trusted until the remote rejects them.
func (s *Session) Restore(ctx context.Context) error {
	token, ok, err := s.store.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	var user *domain.User
	if raw, ok, err := s.store.Get(ctx, KeyUser); err != nil {
		return fmt.Errorf("restore session: %w", err)
	} else if ok && raw != "" {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.logger.Warn("discarding unreadable stored user", zap.Error(err))
		} else {
			user = &u
		}
	}

	next := Authenticated
	if exp, ok := tokenExpiry(token); ok && !exp.After(s.now()) {
		next = Expired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(next); err != nil {
		return err
	}
	s.token = token
	s.user = user
	return nil
}

// BeginLogin marks a credential exchange as in flight.
func (s *Session) BeginLogin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(Authenticating)
}

// FailLogin returns an in-flight login to Anonymous.
func (s *Session) FailLogin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Authenticating {
		_ = s.transitionLocked(Anonymous)
	}
}

// CompleteLogin persists the token and user and marks the session Authenticated.
func (s *Session) CompleteLogin(ctx context.Context, res *domain.AuthResult) error {
	if res == nil || res.Token == "" {
		s.FailLogin()
		return &domain.ErrUnauthorized{Message: "login response carried no token"}
	}
	if err := s.persist(ctx, res.Token, res.User); err != nil {
		s.FailLogin()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(Authenticated); err != nil {
		return err
	}
	s.token = res.Token
	s.user = res.User
	return nil
}

// Logout removes both persisted keys and moves to LoggedOut. The in-memory
// credentials are dropped even when the store fails; the store error is
// returned afterwards.
func (s *Session) Logout(ctx context.Context) error {
	derr := s.store.Delete(ctx, KeyToken, KeyUser)

	s.mu.Lock()
	s.token = ""
	s.user = nil
	var terr error
	if s.state != LoggedOut {
		terr = s.transitionLocked(LoggedOut)
	}
	s.mu.Unlock()

	if derr != nil {
		return fmt.Errorf("logout: %w", derr)
	}
	return terr
}

// Do runs fn with the session's bearer token. When fn fails with
// *domain.ErrUnauthorized the token is refreshed once and fn is retried once.
// A retry that is rejected again leaves the session Expired. A failed refresh
// clears the stored credentials and leaves the session LoggedOut.
func (s *Session) Do(ctx context.Context, op string, fn func(ctx context.Context, token string) error) error {
	ctx, span := tracer.Start(ctx, "Session.Do")
	defer span.End()
	span.SetAttributes(attribute.String("operation", op))

	token, err := s.Token(op)
	if err != nil {
		return err
	}

	err = fn(ctx, token)
	if !isAuthFailure(err) {
		return err
	}

	s.logger.Info("remote rejected token, refreshing", zap.String("operation", op))
	fresh, rerr := s.refreshToken(ctx, token)
	if rerr != nil {
		return rerr
	}

	err = fn(ctx, fresh)
	if isAuthFailure(err) {
		s.mu.Lock()
		if s.token == fresh {
			_ = s.transitionLocked(Expired)
		}
		s.mu.Unlock()
		s.logger.Warn("token rejected after refresh", zap.String("operation", op))
	}
	return err
}

// refreshToken exchanges stale for a new token. Concurrent callers share one
// exchange, and a caller whose stale token was already replaced gets the
// replacement without another round trip.
func (s *Session) refreshToken(ctx context.Context, stale string) (string, error) {
	v, err, _ := s.refresh.Do("refresh", func() (any, error) {
		s.mu.Lock()
		switch {
		case s.token == "":
			s.mu.Unlock()
			return nil, &domain.ErrUnauthorized{Message: "session ended, please log in again"}
		case s.token != stale:
			current := s.token
			s.mu.Unlock()
			return current, nil
		}
		if err := s.transitionLocked(Refreshing); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.mu.Unlock()

		res, err := s.auth.Refresh(context.WithoutCancel(ctx), stale)
		if err == nil && (res == nil || res.Token == "") {
			err = errors.New("refresh response carried no token")
		}
		if err != nil {
			s.metrics.IncrTokenRefresh("failure")
			s.logger.Warn("token refresh failed, logging out", zap.Error(err))
			if lerr := s.Logout(context.WithoutCancel(ctx)); lerr != nil {
				s.logger.Error("failed to clear session storage", zap.Error(lerr))
			}
			return nil, fmt.Errorf("refresh session: %w", &domain.ErrUnauthorized{Message: "session expired, please log in again"})
		}

		user := res.User
		if user == nil {
			user = s.User()
		}
		if err := s.persist(context.WithoutCancel(ctx), res.Token, user); err != nil {
			s.logger.Error("failed to persist refreshed token", zap.Error(err))
		}

		s.mu.Lock()
		s.token = res.Token
		s.user = user
		terr := s.transitionLocked(Authenticated)
		s.mu.Unlock()
		if terr != nil {
			return nil, terr
		}
		s.metrics.IncrTokenRefresh("success")
		return res.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Session) persist(ctx context.Context, token string, user *domain.User) error {
	if err := s.store.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if user == nil {
		return s.store.Delete(ctx, KeyUser)
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	if err := s.store.Set(ctx, KeyUser, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

// transitionLocked must be called with s.mu held.
func (s *Session) transitionLocked(to State) error {
	from := s.state
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return &domain.ErrInvalidTransition{From: string(from), To: string(to)}
	}
	s.state = to
	s.metrics.IncrSessionTransition(string(from), string(to))
	s.logger.Debug("session transition", zap.String("from", string(from)), zap.String("to", string(to)))
	return nil
}

func isAuthFailure(err error) bool {
	var unauthorized *domain.ErrUnauthorized
	return errors.As(err, &unauthorized)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend remains the authority on validity.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
