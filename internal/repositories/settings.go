package repositories

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/shared"
)

// SettingsFile persists [matching.Settings] as TOML.
//
// Writes hold an exclusive lock on "<path>.lock" and replace the file atomically, so readers never see a partial file.
type SettingsFile struct {
	path string
	lock *flock.Flock
}

// NewSettingsFile creates a SettingsFile for path. The file is not touched until Load or Save.
func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the settings file location.
func (f *SettingsFile) Path() string {
	return f.path
}

// Load reads the settings. A missing file yields the defaults, and keys missing from the file keep their default values.
func (f *SettingsFile) Load() (matching.Settings, error) {
	s := matching.DefaultSettings()

	if _, err := toml.DecodeFile(f.path, &s); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return matching.DefaultSettings(), nil
		}
		return matching.Settings{}, fmt.Errorf("%w: %s: %v", shared.ErrInvalidSettings, f.path, err)
	}

	if err := s.Validate(); err != nil {
		return matching.Settings{}, err
	}
	return s, nil
}

// Save validates and writes s. It fails with [shared.ErrLocked] when another process is writing.
func (f *SettingsFile) Save(s matching.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	ok, err := f.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire settings lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrLocked, f.path)
	}
	defer f.lock.Unlock()

	tmp, err := os.CreateTemp(dir, ".matching-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(s); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// Update loads the settings, applies fn and saves the result.
func (f *SettingsFile) Update(fn func(matching.Settings) (matching.Settings, error)) (matching.Settings, error) {
	current, err := f.Load()
	if err != nil {
		return matching.Settings{}, err
	}
	next, err := fn(current)
	if err != nil {
		return matching.Settings{}, err
	}
	if err := f.Save(next); err != nil {
		return matching.Settings{}, err
	}
	return next, nil
}

// Reset overwrites the file with the default settings.
func (f *SettingsFile) Reset() (matching.Settings, error) {
	s := matching.DefaultSettings()
	return s, f.Save(s)
}
