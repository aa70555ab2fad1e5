package session

import (
	"context"
	"sync"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/infra/cache"
	"github.com/nexora/nexora-bfa-go/internal/infra/observability"
	"github.com/nexora/nexora-bfa-go/internal/port"

	"go.uber.org/zap"
)

// Manager keeps the live sessions of the BFF, keyed by session id. Idle
// sessions drop out of memory after the TTL; their persisted credentials
// stay in the store and are restored on the next request.
type Manager struct {
	store   port.KVStore
	auth    port.Authenticator
	live    *cache.InMemory[*Session]
	metrics *observability.Metrics
	logger  *zap.Logger

	mu sync.Mutex
}

// NewManager creates a session manager.
func NewManager(store port.KVStore, auth port.Authenticator, ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		auth:    auth,
		live:    cache.New[*Session](ttl),
		metrics: metrics,
		logger:  logger,
	}
}

// Get returns the session for id, restoring it from the store on first use.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if s, ok := m.live.Get(id); ok {
		m.live.Touch(id)
		return s, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.live.Get(id); ok {
		return s, nil
	}

	s := New(id, Namespace(m.store, "session:"+id+":"), m.auth, m.metrics, m.logger)
	if err := s.Restore(ctx); err != nil {
		return nil, err
	}
	m.live.Set(id, s)
	return s, nil
}

// Forget drops a session from memory without touching its stored credentials.
func (m *Manager) Forget(id string) {
	m.live.Delete(id)
}

// Close stops the manager's background eviction.
func (m *Manager) Close() {
	m.live.Close()
}

// Namespace returns a view of store whose keys carry prefix.
func Namespace(store port.KVStore, prefix string) port.KVStore {
	return &namespaced{prefix: prefix, store: store}
}

type namespaced struct {
	prefix string
	store  port.KVStore
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.store.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.store.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = n.prefix + k
	}
	return n.store.Delete(ctx, full...)
}
