// Package access provides access-control value types and pure decision helpers.
// This package has NO dependencies on I/O or external packages.
package access

import "time"

// Status represents a user's access state.
type Status string

const (
	StatusAllowed Status = "allowed"
	StatusDenied  Status = "denied"
)

// Known reports whether s is one of the recognized status values.
// Anything else in the config store is treated as denied by callers.
func (s Status) Known() bool {
	return s == StatusAllowed || s == StatusDenied
}

// Decision is the aggregated outcome of a single access check.
// It is a strict prefix structure: Permissions is set only if
// authentication passed, and RateChecked is true only if authorization
// passed and rate limiting ran. Fields are never skip-filled.
type Decision struct {
	Access      Status
	Permissions *Status
	RateChecked bool
	RateLimit   *time.Time // non-nil = limited until this deadline
}

// Allowed reports whether the request may proceed end to end.
func (d Decision) Allowed() bool {
	if d.Access != StatusAllowed {
		return false
	}
	if d.Permissions != nil && *d.Permissions != StatusAllowed {
		return false
	}
	if d.RateChecked && d.RateLimit != nil {
		return false
	}
	return true
}

// HasRole checks role membership. An empty or absent roles list grants
// nothing. This is a PURE function.
func HasRole(roles []string, roleID string) bool {
	for _, r := range roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// User is the presence record kept for bookkeeping on every
// authentication attempt.
type User struct {
	ID     string
	ChatID string
	Status Status
}

// EventKind identifies the stage that produced an event record.
type EventKind string

const (
	EventAuthentication EventKind = "authentication"
	EventAuthorization  EventKind = "authorization"
)

// Event is a single authentication or authorization record.
type Event struct {
	ID     string
	UserID string
	Kind   EventKind
	Status Status
	Role   string // set for authorization events only
	Time   time.Time
}

// RequestLog is the consolidated per-request row written after a full
// access-control pass.
type RequestLog struct {
	ID             string
	UserID         string
	ChatID         string
	MessageID      string
	Authentication Status
	Authorization  Status
	Role           string
	RateLimit      *time.Time // nil = not limited
	Timestamp      time.Time
}
