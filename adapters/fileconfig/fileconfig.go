// Package fileconfig provides a read-only ConfigStore backed by a YAML
// user directory file, with optional hot reload on file change.
package fileconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// userEntry is the YAML shape of a single user.
type userEntry struct {
	Status   string      `yaml:"status"`
	Roles    []string    `yaml:"roles"`
	Requests *quotaEntry `yaml:"requests"`
}

// quotaEntry is the YAML shape of a quota block.
type quotaEntry struct {
	RequestsPerDay     uint `yaml:"requests_per_day"`
	RequestsPerHour    uint `yaml:"requests_per_hour"`
	RandomShiftMinutes uint `yaml:"random_shift_minutes"`
}

// directory is the root document shape.
type directory struct {
	Users map[string]userEntry `yaml:"users"`
}

// Store provides thread-safe ConfigStore access with hot reload support.
type Store struct {
	mu      sync.RWMutex
	users   map[string]userEntry
	path    string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// New creates a store and loads the initial user directory.
func New(path string, logger zerolog.Logger) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	users, err := load(absPath)
	if err != nil {
		return nil, fmt.Errorf("load user directory: %w", err)
	}

	return &Store{
		users:  users,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

func load(path string) (map[string]userEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc directory
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Users == nil {
		doc.Users = make(map[string]userEntry)
	}
	return doc.Users, nil
}

// Reload reloads the user directory from disk.
// Returns error if loading fails (keeps old directory).
func (s *Store) Reload() error {
	users, err := load(s.path)
	if err != nil {
		s.logger.Error().Err(err).Msg("user directory reload failed, keeping old entries")
		return fmt.Errorf("reload user directory: %w", err)
	}

	s.mu.Lock()
	old := len(s.users)
	s.users = users
	s.mu.Unlock()

	s.logger.Info().
		Int("old_users", old).
		Int("new_users", len(users)).
		Str("path", s.path).
		Msg("user directory reloaded")
	return nil
}

// WatchFile starts watching the directory file for changes.
// Changes trigger automatic reload.
func (s *Store) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	s.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go s.watchLoop()

	s.logger.Info().Str("path", s.path).Msg("watching user directory for changes")
	return nil
}

// Stop stops watching for file changes.
func (s *Store) Stop() {
	close(s.stopCh)
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Store) watchLoop() {
	filename := filepath.Base(s.path)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("user directory changed")
				if err := s.Reload(); err != nil {
					s.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error().Err(err).Msg("file watcher error")

		case <-s.stopCh:
			return
		}
	}
}
