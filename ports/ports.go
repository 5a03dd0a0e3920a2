// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/botgate/domain/access"
	"github.com/artpar/botgate/domain/ratelimit"
	"github.com/artpar/botgate/domain/token"
)

// ErrNotFound signals an absent record. Absence is a normal condition,
// not a failure; callers decide what it means for them.
var ErrNotFound = errors.New("not found")

// ErrUnsupported signals that the backing store cannot hold the
// requested record shape (backward-compatibility case for token
// storage).
var ErrUnsupported = errors.New("unsupported by store")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Random abstracts randomness for testability.
type Random interface {
	// Bytes generates n random bytes.
	Bytes(n int) ([]byte, error)
	// Between draws a uniform integer in [min, max] inclusive.
	Between(min, max int) (int, error)
}

// IDGenerator generates unique identifiers for event and log records.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// ConfigStore exposes per-user static configuration: access status,
// granted roles and the requests quota. It is read-only to the core.
type ConfigStore interface {
	// GetUserStatus returns the user's access status.
	// ErrNotFound means the user is unknown.
	GetUserStatus(ctx context.Context, userID string) (access.Status, error)

	// GetUserRoles returns the user's granted roles.
	// ErrNotFound means no roles are configured.
	GetUserRoles(ctx context.Context, userID string) ([]string, error)

	// GetUserQuota returns the user's request quota.
	// ErrNotFound means no quota is configured, which is a
	// configuration error whenever rate limiting is requested.
	GetUserQuota(ctx context.Context, userID string) (ratelimit.Quota, error)
}

// HistoryStore persists per-user dynamic state: rate limit counters,
// event and request logs, and issued tokens.
type HistoryStore interface {
	// GetRateState returns the user's rate limit state.
	// A genuinely absent record yields the zero state, not an error;
	// read failures propagate.
	GetRateState(ctx context.Context, userID string) (ratelimit.State, error)

	// PutRateState stores the user's rate limit state.
	PutRateState(ctx context.Context, userID string, state ratelimit.State) error

	// UpsertUser records the user's presence (id/chat/status).
	UpsertUser(ctx context.Context, u access.User) error

	// AppendEvent records an authentication or authorization event.
	AppendEvent(ctx context.Context, e access.Event) error

	// AppendRequestLog records the consolidated per-request row.
	AppendRequestLog(ctx context.Context, r access.RequestLog) error

	// GetToken returns the user's stored token record.
	// ErrNotFound means no token was ever issued or it was removed.
	GetToken(ctx context.Context, userID string) (token.Record, error)

	// PutToken stores the user's token record, replacing any prior one.
	// ErrUnsupported means the store cannot hold token records.
	PutToken(ctx context.Context, userID string, rec token.Record) error

	// MarkTokenUsed marks the user's stored token as used. Idempotent;
	// a missing record is not an error.
	MarkTokenUsed(ctx context.Context, userID string) error
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// Metrics receives decision outcomes. A nil Metrics in service deps is
// valid and means no collection.
type Metrics interface {
	// ObserveDecision records a finished access check.
	ObserveDecision(d access.Decision)

	// ObserveRateLimit records an applied or standing rate limit.
	ObserveRateLimit(reason string, deadline time.Time)

	// ObserveToken records a token operation outcome
	// ("issued", "validated", "rejected", "revoked").
	ObserveToken(outcome string)
}
