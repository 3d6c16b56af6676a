// Package localstore persists the small bits of device-local state: the
// single saved user location and the "install prompt seen" flag. Each is
// one JSON file under the data directory, overwritten on every save.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/florapix/devicehub/internal/core/domain"
)

const (
	locationFile   = "user_location.json"
	promptSeenFile = "install_prompt_seen"
)

// Store implements ports.LocationStore on the local filesystem.
type Store struct {
	dir string
}

// New creates the data directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save overwrites the saved location.
func (s *Store) Save(coords domain.Coordinates) error {
	data, err := json.Marshal(coords)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	if err := os.WriteFile(s.path(locationFile), data, 0o644); err != nil {
		return fmt.Errorf("write location: %w", err)
	}
	return nil
}

// Load returns the saved location. Missing or malformed data is treated
// as "nothing saved": nil, nil.
func (s *Store) Load() (*domain.Coordinates, error) {
	data, err := os.ReadFile(s.path(locationFile))
	if err != nil {
		return nil, nil
	}
	var coords domain.Coordinates
	if err := json.Unmarshal(data, &coords); err != nil {
		return nil, nil
	}
	return &coords, nil
}

// Clear erases the saved location.
func (s *Store) Clear() error {
	err := os.Remove(s.path(locationFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear location: %w", err)
	}
	return nil
}

// SetInstallPromptSeen records the flag as file presence.
func (s *Store) SetInstallPromptSeen(seen bool) error {
	path := s.path(promptSeenFile)
	if !seen {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return os.WriteFile(path, []byte("1"), 0o644)
}

// InstallPromptSeen reports the flag.
func (s *Store) InstallPromptSeen() bool {
	_, err := os.Stat(s.path(promptSeenFile))
	return err == nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}
