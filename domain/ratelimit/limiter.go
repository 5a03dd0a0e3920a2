// Package ratelimit provides the pure rate limit determination algorithm.
// All functions are deterministic - same input always produces same output.
// Randomness (the jitter draw) is supplied by the caller.
package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Quota holds the configured per-user request limits (value type).
type Quota struct {
	RequestsPerDay     uint // 0 = always exceeded
	RequestsPerHour    uint // 0 = always exceeded
	RandomShiftMinutes uint // jitter window for hourly limits, must be >= 1
}

// Validate checks that the quota is usable for rate limiting.
// A zero RandomShiftMinutes makes the jitter draw ill-defined and is a
// configuration error, not a deny.
func (q Quota) Validate() error {
	if q.RandomShiftMinutes == 0 {
		return errors.New("random_shift_minutes must be >= 1")
	}
	return nil
}

// State is the persisted per-user rate limit state (value type).
// Counters roll within their windows; Deadline is set only while a
// limit is applied.
type State struct {
	RequestsPerDay  uint
	RequestsPerHour uint
	Deadline        *time.Time
}

// Limited reports whether a deadline is currently recorded.
func (s State) Limited() bool {
	return s.Deadline != nil
}

// Reasons a deadline was set or kept.
const (
	ReasonPerDay  = "per_day_exceeded"
	ReasonPerHour = "per_hour_exceeded"
	ReasonActive  = "limit_active"
)

// Result represents the outcome of a determination (value type).
type Result struct {
	Limited  bool
	Deadline time.Time // valid only when Limited
	Reason   string    // valid only when Limited
}

// ErrDetermination signals that the four-way branch fell through, which
// is always a logic or data-consistency bug.
var ErrDetermination = errors.New("rate limit determination failed")

// DeterminationError carries the offending state for diagnostics.
type DeterminationError struct {
	State State
	Quota Quota
}

func (e *DeterminationError) Error() string {
	return fmt.Sprintf("rate limit determination failed: state={day:%d hour:%d limited:%v} quota={day:%d hour:%d shift:%d}",
		e.State.RequestsPerDay, e.State.RequestsPerHour, e.State.Limited(),
		e.Quota.RequestsPerDay, e.Quota.RequestsPerHour, e.Quota.RandomShiftMinutes)
}

func (e *DeterminationError) Unwrap() error { return ErrDetermination }

// Determine decides whether the caller may proceed and returns the
// updated state the caller must persist.
// This is a PURE function - no side effects, deterministic.
//
// Parameters:
//   - state: current counters and any active deadline
//   - q: configured quota (must satisfy q.Validate)
//   - now: current timestamp
//   - shift: pre-drawn jitter in minutes, in [1, q.RandomShiftMinutes]
//
// Returns:
//   - result: whether a limit applies and until when
//   - newState: updated state (caller must persist)
func Determine(state State, q Quota, now time.Time, shift uint) (Result, State, error) {
	// An active deadline takes precedence over counter evaluation.
	if state.Deadline != nil {
		if !now.Before(*state.Deadline) {
			// Expired. Clear it and treat this call as no longer
			// limited; counters are left for the next pass.
			state.Deadline = nil
			return Result{}, state, nil
		}
		// Still blocked. Requests keep arriving while limited, so an
		// hourly overrun pushes the deadline out by another hour block
		// plus fresh jitter.
		if state.RequestsPerHour >= q.RequestsPerHour {
			extended := state.Deadline.Add(time.Hour + time.Duration(shift)*time.Minute)
			state.Deadline = &extended
		}
		return Result{Limited: true, Deadline: *state.Deadline, Reason: ReasonActive}, state, nil
	}

	dayExceeded := state.RequestsPerDay >= q.RequestsPerDay
	hourExceeded := state.RequestsPerHour >= q.RequestsPerHour

	switch {
	case dayExceeded || hourExceeded:
		var deadline time.Time
		var reason string
		if dayExceeded {
			// Day quota wins. The current request itself still counts
			// against the hourly window.
			deadline = now.Add(24 * time.Hour)
			reason = ReasonPerDay
			state.RequestsPerDay = 0
			state.RequestsPerHour++
		} else {
			deadline = now.Add(time.Hour + time.Duration(shift)*time.Minute)
			reason = ReasonPerHour
			state.RequestsPerHour = 0
			state.RequestsPerDay++
		}
		state.Deadline = &deadline
		return Result{Limited: true, Deadline: deadline, Reason: reason}, state, nil

	case state.RequestsPerDay < q.RequestsPerDay && state.RequestsPerHour < q.RequestsPerHour:
		state.RequestsPerDay++
		state.RequestsPerHour++
		return Result{}, state, nil

	default:
		// Unreachable given the branches above are exhaustive; never
		// silently default.
		return Result{}, state, &DeterminationError{State: state, Quota: q}
	}
}
