package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/botgate/domain/access"
	"github.com/artpar/botgate/domain/token"
	"github.com/artpar/botgate/ports"
)

// TokenService issues and validates single-use, short-TTL bearer
// tokens as an alternate authentication path.
type TokenService struct {
	config  ports.ConfigStore
	history ports.HistoryStore
	clock   ports.Clock
	metrics ports.Metrics // nil = no collection
	logger  zerolog.Logger

	iterations int

	users userLocks
}

// TokenDeps contains dependencies for TokenService.
type TokenDeps struct {
	Config  ports.ConfigStore
	History ports.HistoryStore
	Clock   ports.Clock
	Metrics ports.Metrics
	Logger  zerolog.Logger
}

// TokenConfig contains configuration for TokenService.
type TokenConfig struct {
	// PBKDF2Iterations below token.MinIterations are raised to it.
	PBKDF2Iterations int
}

// NewTokenService creates a new token service.
func NewTokenService(deps TokenDeps, cfg TokenConfig) *TokenService {
	iterations := cfg.PBKDF2Iterations
	if iterations < token.MinIterations {
		iterations = token.MinIterations
	}
	return &TokenService{
		config:     deps.Config,
		history:    deps.History,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		iterations: iterations,
	}
}

// Identity is returned by a successful validation. Status reflects the
// user's current configuration: a denied user's token still validates
// structurally, and callers must check Status themselves.
type Identity struct {
	UserID string
	Status access.Status
	Roles  []string
}

// Issue creates a new token for the user, invalidating any previously
// issued one. The returned string is what the client must present
// later. An empty string with nil error means the backing store cannot
// record tokens (issuance unavailable).
func (s *TokenService) Issue(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if !token.ValidUserID(userID) {
		return "", fmt.Errorf("%w: user id must be non-empty and free of %q", ErrInvalidArgument, token.Delimiter)
	}

	mu := s.users.lock(userID)
	defer mu.Unlock()

	raw, rec := token.Generate(userID, s.iterations, ttl, s.clock.Now())

	// Overwrite semantics: storing the new record invalidates any
	// prior unexpired token for this user.
	if err := s.history.PutToken(ctx, userID, rec); err != nil {
		if errors.Is(err, ports.ErrUnsupported) {
			s.logger.Warn().Str("user_id", userID).Msg("token issuance unavailable: store cannot record tokens")
			return "", nil
		}
		return "", fmt.Errorf("put token: %w", err)
	}

	s.observe("issued")
	s.logger.Info().Str("user_id", userID).Time("expires_at", rec.ExpiresAt).Msg("token issued")
	return raw, nil
}

// Validate checks a presented token. It returns nil (without error)
// for unknown, expired, used, or mismatched tokens; only a malformed
// input is an error. A successful validation consumes the token.
func (s *TokenService) Validate(ctx context.Context, raw string) (*Identity, error) {
	userID, tokenID, ok := token.Parse(raw)
	if !ok {
		return nil, fmt.Errorf("%w: token must be user_id%stoken_id", ErrInvalidArgument, token.Delimiter)
	}

	mu := s.users.lock(userID)
	defer mu.Unlock()

	rec, err := s.history.GetToken(ctx, userID)
	if errors.Is(err, ports.ErrNotFound) {
		s.observe("rejected")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	// Expiry and single-use are checked before any hashing; the
	// return value does not distinguish the cases.
	if !rec.IsValid(s.clock.Now()) {
		s.observe("rejected")
		return nil, nil
	}

	if !token.Verify(rec, tokenID, s.iterations) {
		s.observe("rejected")
		return nil, nil
	}

	// Consume before reporting success: a second validation of the
	// same token must fail.
	if err := s.history.MarkTokenUsed(ctx, userID); err != nil {
		return nil, fmt.Errorf("mark token used: %w", err)
	}

	status, err := s.config.GetUserStatus(ctx, userID)
	if errors.Is(err, ports.ErrNotFound) {
		status = access.StatusDenied
	} else if err != nil {
		return nil, fmt.Errorf("get user status: %w", err)
	}

	roles, err := s.config.GetUserRoles(ctx, userID)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, fmt.Errorf("get user roles: %w", err)
	}

	s.observe("validated")
	return &Identity{UserID: userID, Status: status, Roles: roles}, nil
}

// Revoke marks any outstanding token for the user as used. Idempotent.
func (s *TokenService) Revoke(ctx context.Context, userID string) error {
	if !token.ValidUserID(userID) {
		return fmt.Errorf("%w: user id must be non-empty and free of %q", ErrInvalidArgument, token.Delimiter)
	}

	mu := s.users.lock(userID)
	defer mu.Unlock()

	if err := s.history.MarkTokenUsed(ctx, userID); err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	s.observe("revoked")
	return nil
}

func (s *TokenService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveToken(outcome)
	}
}
