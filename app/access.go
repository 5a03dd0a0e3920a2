// Package app provides application services that orchestrate domain
// logic with store I/O.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/botgate/domain/access"
	"github.com/artpar/botgate/domain/ratelimit"
	"github.com/artpar/botgate/ports"
)

// AccessService runs the authentication -> authorization -> rate-limit
// pipeline for each incoming request.
type AccessService struct {
	config  ports.ConfigStore
	history ports.HistoryStore
	clock   ports.Clock
	random  ports.Random
	idGen   ports.IDGenerator
	metrics ports.Metrics // nil = no collection
	logger  zerolog.Logger

	// Deployment-wide static switch, not per-request.
	rateLimitEnabled bool

	users userLocks
}

// AccessDeps contains dependencies for AccessService.
type AccessDeps struct {
	Config  ports.ConfigStore
	History ports.HistoryStore
	Clock   ports.Clock
	Random  ports.Random
	IDGen   ports.IDGenerator
	Metrics ports.Metrics
	Logger  zerolog.Logger
}

// AccessConfig contains configuration for AccessService.
type AccessConfig struct {
	RateLimitEnabled bool
}

// NewAccessService creates a new access service.
func NewAccessService(deps AccessDeps, cfg AccessConfig) *AccessService {
	return &AccessService{
		config:           deps.Config,
		history:          deps.History,
		clock:            deps.Clock,
		random:           deps.Random,
		idGen:            deps.IDGen,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		rateLimitEnabled: cfg.RateLimitEnabled,
	}
}

// CheckRequest identifies one incoming request to evaluate.
type CheckRequest struct {
	UserID    string
	ChatID    string
	MessageID string
	RoleID    string // empty = no authorization stage
}

// Check evaluates a request through the access-control pipeline and
// returns the aggregated decision. Stages run strictly in order; the
// first denial terminates the pipeline and later Decision fields stay
// absent. Unknown and denied users are normal Denied outcomes, not
// errors.
func (s *AccessService) Check(ctx context.Context, req CheckRequest) (access.Decision, error) {
	if req.UserID == "" {
		return access.Decision{}, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	var decision access.Decision

	// 1. Authenticate (I/O: status lookup + event/presence writes).
	authStatus, err := s.authenticate(ctx, req)
	if err != nil {
		return access.Decision{}, err
	}
	decision.Access = authStatus
	if authStatus != access.StatusAllowed {
		s.observe(decision)
		return decision, nil
	}

	// 2. Authorize, only when a role was requested.
	if req.RoleID == "" {
		s.observe(decision)
		return decision, nil
	}
	authzStatus, err := s.authorize(ctx, req)
	if err != nil {
		return access.Decision{}, err
	}
	decision.Permissions = &authzStatus
	if authzStatus != access.StatusAllowed {
		s.observe(decision)
		return decision, nil
	}

	// 3. Rate check, only for this deployment's static switch.
	if !s.rateLimitEnabled {
		s.observe(decision)
		return decision, nil
	}
	deadline, err := s.rateCheck(ctx, req)
	if err != nil {
		return access.Decision{}, err
	}
	decision.RateChecked = true
	decision.RateLimit = deadline

	s.observe(decision)
	return decision, nil
}

func (s *AccessService) authenticate(ctx context.Context, req CheckRequest) (access.Status, error) {
	now := s.clock.Now()

	status, err := s.config.GetUserStatus(ctx, req.UserID)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		// Unknown users are denied, not failed.
		status = access.StatusDenied
	case err != nil:
		return "", fmt.Errorf("get user status: %w", err)
	case !status.Known():
		s.logger.Warn().
			Str("user_id", req.UserID).
			Str("status", string(status)).
			Msg("unrecognized user status in configuration, treating as denied")
		status = access.StatusDenied
	}

	if status != access.StatusAllowed {
		s.logger.Warn().Str("user_id", req.UserID).Msg("authentication denied")
	}

	if err := s.history.AppendEvent(ctx, access.Event{
		ID:     s.idGen.New(),
		UserID: req.UserID,
		Kind:   access.EventAuthentication,
		Status: status,
		Time:   now,
	}); err != nil {
		return "", fmt.Errorf("append authentication event: %w", err)
	}

	if err := s.history.UpsertUser(ctx, access.User{
		ID:     req.UserID,
		ChatID: req.ChatID,
		Status: status,
	}); err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}

	return status, nil
}

func (s *AccessService) authorize(ctx context.Context, req CheckRequest) (access.Status, error) {
	now := s.clock.Now()

	roles, err := s.config.GetUserRoles(ctx, req.UserID)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return "", fmt.Errorf("get user roles: %w", err)
	}

	status := access.StatusDenied
	if access.HasRole(roles, req.RoleID) {
		status = access.StatusAllowed
	} else {
		s.logger.Warn().
			Str("user_id", req.UserID).
			Str("role_id", req.RoleID).
			Msg("authorization denied")
	}

	if err := s.history.AppendEvent(ctx, access.Event{
		ID:     s.idGen.New(),
		UserID: req.UserID,
		Kind:   access.EventAuthorization,
		Status: status,
		Role:   req.RoleID,
		Time:   now,
	}); err != nil {
		return "", fmt.Errorf("append authorization event: %w", err)
	}

	return status, nil
}

// rateCheck runs the rate limit determination inside the per-user lock
// and writes the consolidated request-log row.
func (s *AccessService) rateCheck(ctx context.Context, req CheckRequest) (deadline *time.Time, err error) {
	quota, err := s.config.GetUserQuota(ctx, req.UserID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, fmt.Errorf("%w: no requests quota for user %s", ErrWrongUserConfiguration, req.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("get user quota: %w", err)
	}
	if err := quota.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongUserConfiguration, err)
	}

	shift, err := s.random.Between(1, int(quota.RandomShiftMinutes))
	if err != nil {
		return nil, fmt.Errorf("draw jitter: %w", err)
	}

	mu := s.users.lock(req.UserID)
	defer mu.Unlock()

	now := s.clock.Now()

	state, err := s.history.GetRateState(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get rate state: %w", err)
	}

	result, newState, err := ratelimit.Determine(state, quota, now, uint(shift))
	if err != nil {
		// A fallthrough is a logic fault; dump the offending state.
		s.logger.Error().
			Err(err).
			Str("user_id", req.UserID).
			Uint("day_counter", state.RequestsPerDay).
			Uint("hour_counter", state.RequestsPerHour).
			Uint("day_quota", quota.RequestsPerDay).
			Uint("hour_quota", quota.RequestsPerHour).
			Msg("rate limit determination failed")
		return nil, err
	}

	if err := s.history.PutRateState(ctx, req.UserID, newState); err != nil {
		return nil, fmt.Errorf("put rate state: %w", err)
	}

	if result.Limited {
		deadline = &result.Deadline
		s.logger.Warn().
			Str("user_id", req.UserID).
			Str("reason", result.Reason).
			Time("deadline", result.Deadline).
			Msg("rate limit applied")
		if s.metrics != nil {
			s.metrics.ObserveRateLimit(result.Reason, result.Deadline)
		}
	}

	if err := s.history.AppendRequestLog(ctx, access.RequestLog{
		ID:             s.idGen.New(),
		UserID:         req.UserID,
		ChatID:         req.ChatID,
		MessageID:      req.MessageID,
		Authentication: access.StatusAllowed,
		Authorization:  access.StatusAllowed,
		Role:           req.RoleID,
		RateLimit:      deadline,
		Timestamp:      now,
	}); err != nil {
		return nil, fmt.Errorf("append request log: %w", err)
	}

	return deadline, nil
}

func (s *AccessService) observe(d access.Decision) {
	if s.metrics != nil {
		s.metrics.ObserveDecision(d)
	}
}
