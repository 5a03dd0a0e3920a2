package memory

import (
	"context"
	"sync"

	"github.com/artpar/botgate/domain/access"
	"github.com/artpar/botgate/domain/ratelimit"
	"github.com/artpar/botgate/domain/token"
	"github.com/artpar/botgate/ports"
)

// HistoryStore is an in-memory implementation of ports.HistoryStore.
type HistoryStore struct {
	mu       sync.RWMutex
	states   map[string]ratelimit.State
	users    map[string]access.User
	events   []access.Event
	requests []access.RequestLog
	tokens   map[string]token.Record

	// TokensUnsupported makes PutToken report ErrUnsupported, mimicking
	// a backend without a token table.
	TokensUnsupported bool
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		states: make(map[string]ratelimit.State),
		users:  make(map[string]access.User),
		tokens: make(map[string]token.Record),
	}
}

// GetRateState returns the user's rate limit state, zero if absent.
func (s *HistoryStore) GetRateState(ctx context.Context, userID string) (ratelimit.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[userID], nil
}

// PutRateState stores the user's rate limit state.
func (s *HistoryStore) PutRateState(ctx context.Context, userID string, state ratelimit.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = state
	return nil
}

// UpsertUser records the user's presence.
func (s *HistoryStore) UpsertUser(ctx context.Context, u access.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

// AppendEvent records an authentication or authorization event.
func (s *HistoryStore) AppendEvent(ctx context.Context, e access.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// AppendRequestLog records the consolidated per-request row.
func (s *HistoryStore) AppendRequestLog(ctx context.Context, r access.RequestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
	return nil
}

// GetToken returns the user's stored token record.
func (s *HistoryStore) GetToken(ctx context.Context, userID string) (token.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tokens[userID]
	if !ok {
		return token.Record{}, ports.ErrNotFound
	}
	return rec, nil
}

// PutToken stores the user's token record, replacing any prior one.
func (s *HistoryStore) PutToken(ctx context.Context, userID string, rec token.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TokensUnsupported {
		return ports.ErrUnsupported
	}
	s.tokens[userID] = rec
	return nil
}

// MarkTokenUsed marks the user's stored token as used.
func (s *HistoryStore) MarkTokenUsed(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[userID]
	if !ok {
		return nil
	}
	rec.Used = true
	s.tokens[userID] = rec
	return nil
}

// User returns the stored presence record (for testing).
func (s *HistoryStore) User(userID string) (access.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	return u, ok
}

// Events returns a copy of the recorded events (for testing).
func (s *HistoryStore) Events() []access.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]access.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Requests returns a copy of the recorded request rows (for testing).
func (s *HistoryStore) Requests() []access.RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]access.RequestLog, len(s.requests))
	copy(out, s.requests)
	return out
}

// Clear removes all state (for testing).
func (s *HistoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]ratelimit.State)
	s.users = make(map[string]access.User)
	s.events = nil
	s.requests = nil
	s.tokens = make(map[string]token.Record)
}

// Ensure interface compliance.
var _ ports.HistoryStore = (*HistoryStore)(nil)
