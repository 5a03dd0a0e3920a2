// Package memory provides in-memory store implementations used in tests
// and by embedded hosts that keep user configuration in process.
package memory

import (
	"context"
	"sync"

	"github.com/artpar/botgate/domain/access"
	"github.com/artpar/botgate/domain/ratelimit"
	"github.com/artpar/botgate/ports"
)

// UserConfig is the per-user entry held by ConfigStore.
type UserConfig struct {
	Status access.Status
	Roles  []string
	Quota  *ratelimit.Quota // nil = no quota configured
}

// ConfigStore is an in-memory implementation of ports.ConfigStore.
type ConfigStore struct {
	mu    sync.RWMutex
	users map[string]UserConfig
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{users: make(map[string]UserConfig)}
}

// SetUser adds or replaces a user's configuration.
func (s *ConfigStore) SetUser(userID string, cfg UserConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = cfg
}

// GetUserStatus returns the user's access status.
func (s *ConfigStore) GetUserStatus(ctx context.Context, userID string) (access.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.users[userID]
	if !ok {
		return "", ports.ErrNotFound
	}
	return cfg.Status, nil
}

// GetUserRoles returns the user's granted roles.
func (s *ConfigStore) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.users[userID]
	if !ok || cfg.Roles == nil {
		return nil, ports.ErrNotFound
	}
	roles := make([]string, len(cfg.Roles))
	copy(roles, cfg.Roles)
	return roles, nil
}

// GetUserQuota returns the user's request quota.
func (s *ConfigStore) GetUserQuota(ctx context.Context, userID string) (ratelimit.Quota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.users[userID]
	if !ok || cfg.Quota == nil {
		return ratelimit.Quota{}, ports.ErrNotFound
	}
	return *cfg.Quota, nil
}

// Clear removes all entries (for testing).
func (s *ConfigStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]UserConfig)
}

// Ensure interface compliance.
var _ ports.ConfigStore = (*ConfigStore)(nil)
