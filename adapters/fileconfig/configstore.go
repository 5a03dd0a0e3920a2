package fileconfig

import (
	"context"

	"github.com/artpar/botgate/domain/access"
	"github.com/artpar/botgate/domain/ratelimit"
	"github.com/artpar/botgate/ports"
)

// GetUserStatus returns the user's access status.
func (s *Store) GetUserStatus(ctx context.Context, userID string) (access.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.users[userID]
	if !ok {
		return "", ports.ErrNotFound
	}
	return access.Status(entry.Status), nil
}

// GetUserRoles returns the user's granted roles.
func (s *Store) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.users[userID]
	if !ok || entry.Roles == nil {
		return nil, ports.ErrNotFound
	}
	roles := make([]string, len(entry.Roles))
	copy(roles, entry.Roles)
	return roles, nil
}

// GetUserQuota returns the user's request quota.
func (s *Store) GetUserQuota(ctx context.Context, userID string) (ratelimit.Quota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.users[userID]
	if !ok || entry.Requests == nil {
		return ratelimit.Quota{}, ports.ErrNotFound
	}
	return ratelimit.Quota{
		RequestsPerDay:     entry.Requests.RequestsPerDay,
		RequestsPerHour:    entry.Requests.RequestsPerHour,
		RandomShiftMinutes: entry.Requests.RandomShiftMinutes,
	}, nil
}

// Ensure interface compliance.
var _ ports.ConfigStore = (*Store)(nil)
