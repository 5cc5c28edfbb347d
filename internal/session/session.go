// Package session carries the declared user (email, role, name) through the
// request context. Sessions live in a Store keyed by an opaque token.
package session

import (
	"context"
	"sync"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
)

type Session struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Name  string      `json:"name"`
}

// Store keeps sessions between requests.
type Store interface {
	Get(ctx context.Context, token string) (Session, bool)
	Set(ctx context.Context, token string, s Session) error
	Clear(ctx context.Context, token string) error
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached to ctx, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// RoleFromContext is the current role, or "" when the request has no session.
func RoleFromContext(ctx context.Context) domain.Role {
	s, _ := FromContext(ctx)
	return s.Role
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Get(_ context.Context, token string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	return s, ok
}

func (m *MemoryStore) Set(_ context.Context, token string, s Session) error {
	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}
