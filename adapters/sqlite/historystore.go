package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artpar/botgate/domain/access"
	"github.com/artpar/botgate/domain/ratelimit"
	"github.com/artpar/botgate/ports"
)

// HistoryStore implements ports.HistoryStore using SQLite.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new SQLite history store.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// GetRateState returns the user's rate limit state.
// A missing row is a first-ever request and yields the zero state.
func (s *HistoryStore) GetRateState(ctx context.Context, userID string) (ratelimit.State, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT requests_per_day, requests_per_hour, deadline
		FROM rate_limit_state
		WHERE user_id = ?
	`, userID)

	var state ratelimit.State
	var deadline sql.NullTime
	err := row.Scan(&state.RequestsPerDay, &state.RequestsPerHour, &deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return ratelimit.State{}, nil
	}
	if err != nil {
		return ratelimit.State{}, err
	}
	if deadline.Valid {
		state.Deadline = &deadline.Time
	}
	return state, nil
}

// PutRateState stores the user's rate limit state.
func (s *HistoryStore) PutRateState(ctx context.Context, userID string, state ratelimit.State) error {
	var deadline sql.NullTime
	if state.Deadline != nil {
		deadline = sql.NullTime{Time: *state.Deadline, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_limit_state (user_id, requests_per_day, requests_per_hour, deadline)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			requests_per_day = excluded.requests_per_day,
			requests_per_hour = excluded.requests_per_hour,
			deadline = excluded.deadline
	`, userID, state.RequestsPerDay, state.RequestsPerHour, deadline)
	return err
}

// UpsertUser records the user's presence.
func (s *HistoryStore) UpsertUser(ctx context.Context, u access.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, chat_id, status, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, u.ID, u.ChatID, string(u.Status))
	return err
}

// AppendEvent records an authentication or authorization event.
func (s *HistoryStore) AppendEvent(ctx context.Context, e access.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_events (id, user_id, kind, status, role, time)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, string(e.Kind), string(e.Status), e.Role, e.Time)
	return err
}

// AppendRequestLog records the consolidated per-request row.
func (s *HistoryStore) AppendRequestLog(ctx context.Context, r access.RequestLog) error {
	var deadline sql.NullTime
	if r.RateLimit != nil {
		deadline = sql.NullTime{Time: *r.RateLimit, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_requests (id, user_id, chat_id, message_id, authentication, authorization, role, rate_limit, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, r.ChatID, r.MessageID, string(r.Authentication), string(r.Authorization), r.Role, deadline, r.Timestamp)
	return err
}

// Ensure interface compliance.
var _ ports.HistoryStore = (*HistoryStore)(nil)
