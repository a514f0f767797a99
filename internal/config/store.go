/*
Package config
File: store.go
Description:
    Persists Settings as YAML in two tiers:
    1. Local storage: the per-installation default, written once.
    2. World storage: the per-world override, written on every save.

    Loading prefers the world file. A file whose version_number is older
    than CurrentVersionNumber is backed up (deadlyaccel.yaml.backup.N) in
    every tier that has one, and the defaults are written in its place.
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/deadly-accel/internal/logging"
)

// Filename is the config file name in both storage tiers.
const Filename = "deadlyaccel.yaml"

// Store reads and writes settings files.
type Store struct {
	LocalDir string // Installation-wide directory
	WorldDir string // Current world directory; empty disables the world tier
	Log      logging.Channels
}

// NewStore creates a store for the given directories.
func NewStore(localDir, worldDir string, log logging.Channels) *Store {
	return &Store{LocalDir: localDir, WorldDir: worldDir, Log: log}
}

func (s *Store) localPath() string { return filepath.Join(s.LocalDir, Filename) }
func (s *Store) worldPath() string { return filepath.Join(s.WorldDir, Filename) }

func (s *Store) hasWorld() bool { return s.WorldDir != "" }

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// TryLoad reads the current settings, falling back on any failure.
// A missing local file is seeded from fallback first.
func (s *Store) TryLoad(fallback Settings) Settings {
	if !fileExists(s.localPath()) {
		if err := s.SaveLocal(fallback); err != nil {
			s.Log.Game.Error("CONFIG: failed to seed local config", "err", err)
		}
	}

	path := s.localPath()
	if s.hasWorld() && fileExists(s.worldPath()) {
		s.Log.Game.Debug("CONFIG: loading from world", "path", s.worldPath())
		path = s.worldPath()
	} else {
		s.Log.Game.Debug("CONFIG: loading from local", "path", path)
	}

	loaded, err := readSettings(path)
	if err != nil {
		s.Log.Game.Error("CONFIG: failed to load settings", "path", path, "err", err)
		s.Log.UI.Error("Failed to load settings")
		return fallback
	}
	s.Log.Game.Info("CONFIG: loaded settings", "path", path)
	return loaded
}

// LoadOrReset applies the version gate on top of TryLoad.
func (s *Store) LoadOrReset(defaults Settings) (Settings, error) {
	loaded := s.TryLoad(defaults)

	if !loaded.ValidAgainst(defaults) {
		if err := s.FullBackup(); err != nil {
			return defaults, fmt.Errorf("backup old config: %w", err)
		}
		s.Log.Game.Info("CONFIG: old config detected, backed up and overwritten",
			"found_version", loaded.VersionNumber, "current_version", defaults.VersionNumber)
		s.Log.UI.Info("Old config file detected. Your config has been backed up; transfer any changes to the new file")
		if err := s.Save(defaults, true); err != nil {
			return defaults, err
		}
		return defaults, nil
	}

	if err := loaded.Validate(); err != nil {
		s.Log.Game.Error("CONFIG: rejecting invalid settings, using defaults", "err", err)
		s.Log.UI.Error("Config file is invalid, using defaults")
		return defaults, nil
	}

	if err := s.Save(loaded, false); err != nil {
		return loaded, err
	}
	return loaded, nil
}

// Save writes the world tier, and the local tier when it is missing or
// overwrite is set.
func (s *Store) Save(st Settings, overwrite bool) error {
	s.Log.Game.Debug("CONFIG: saving settings")
	if overwrite || !fileExists(s.localPath()) {
		if err := s.SaveLocal(st); err != nil {
			return err
		}
	}
	if !s.hasWorld() {
		return nil
	}
	s.Log.Game.Info("CONFIG: saving to world config", "path", s.worldPath())
	return writeSettings(s.worldPath(), st)
}

// SaveLocal writes the installation-wide file.
func (s *Store) SaveLocal(st Settings) error {
	s.Log.Game.Debug("CONFIG: saving to local config", "path", s.localPath())
	return writeSettings(s.localPath(), st)
}

// FullBackup copies every existing tier to its next free backup name.
func (s *Store) FullBackup() error {
	if fileExists(s.localPath()) {
		if _, err := backup(s.LocalDir); err != nil {
			return err
		}
	}
	if s.hasWorld() && fileExists(s.worldPath()) {
		if _, err := backup(s.WorldDir); err != nil {
			return err
		}
	}
	return nil
}

// backupName returns the first deadlyaccel.yaml.backup.N not present in dir.
func backupName(dir string) (string, error) {
	for n := 0; ; n++ {
		name := filepath.Join(dir, fmt.Sprintf("%s.backup.%d", Filename, n))
		_, err := os.Stat(name)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return name, nil
		case err != nil:
			return "", fmt.Errorf("stat backup %s: %w", name, err)
		}
	}
}

func backup(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, Filename))
	if err != nil {
		return "", err
	}
	name, err := backupName(dir)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup %s: %w", name, err)
	}
	return name, nil
}

func readSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	// Keys missing from the file keep their defaults. The version does not,
	// so an unversioned file still reads as outdated.
	st := Default()
	st.VersionNumber = 0
	if err := yaml.Unmarshal(data, &st); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	st.normalize()
	return st, nil
}

func writeSettings(path string, st Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(&st)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
