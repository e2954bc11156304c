// Package settings persists the metadata version, the default toolchain and
// directory overrides in settings.toml.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"multirust/internal/errs"
	"multirust/internal/notify"
	"multirust/internal/paths"
)

// MetadataVersion is the schema version this build reads and writes.
const MetadataVersion = "2"

// Override pins a toolchain to one exact directory.
type Override struct {
	Toolchain string `toml:"toolchain"`
	Reason    string `toml:"reason"`
}

// Settings is the persisted state under the managed home.
type Settings struct {
	Version          string              `toml:"version"`
	DefaultToolchain string              `toml:"default_toolchain,omitempty"`
	Overrides        map[string]Override `toml:"overrides"`
}

// Entry is one override together with its directory key.
type Entry struct {
	Dir string
	Override
}

func newSettings() *Settings {
	return &Settings{Version: MetadataVersion, Overrides: map[string]Override{}}
}

// SortedOverrides returns every override ordered by directory.
func (s *Settings) SortedOverrides() []Entry {
	entries := make([]Entry, 0, len(s.Overrides))
	for dir, o := range s.Overrides {
		entries = append(entries, Entry{Dir: dir, Override: o})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Dir < entries[j].Dir })
	return entries
}

// Store reads and writes settings.toml. Writers serialise through an advisory
// lock file next to it.
type Store struct {
	Path        string
	LockPath    string
	LockTimeout time.Duration
	StaleAfter  time.Duration

	sink notify.Sink
}

// NewStore returns a store for the layout's settings file.
func NewStore(layout paths.Layout, sink notify.Sink) *Store {
	if sink == nil {
		sink = notify.Discard
	}
	return &Store{
		Path:        layout.SettingsFile,
		LockPath:    layout.LockFile,
		LockTimeout: 10 * time.Second,
		StaleAfter:  30 * time.Second,
		sink:        sink,
	}
}

// Exists reports whether the settings file has been written.
func (s *Store) Exists() (bool, error) {
	return paths.FileExists(s.Path)
}

// Load reads the settings. A missing file yields empty settings at the
// current version.
func (s *Store) Load() (*Settings, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newSettings(), nil
		}
		return nil, errs.Filesystem("read settings", err)
	}

	st := newSettings()
	st.Version = ""
	if _, err := toml.Decode(string(data), st); err != nil {
		return nil, errs.Configuration("decode %s: %v", s.Path, err)
	}
	if st.Overrides == nil {
		st.Overrides = map[string]Override{}
	}
	return st, nil
}

// Update loads the settings under the lock, applies fn and saves the result.
// Nothing is written when fn fails.
func (s *Store) Update(ctx context.Context, fn func(*Settings) error) error {
	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	st, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return s.save(st)
}

func (s *Store) save(st *Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return errs.Filesystem("prepare settings directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), "settings-*.toml")
	if err != nil {
		return errs.Filesystem("create temp settings", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := toml.NewEncoder(tmp).Encode(st); err != nil {
		tmp.Close()
		return errs.Filesystem("encode settings", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Filesystem("close temp settings", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return errs.Filesystem("replace settings", err)
	}
	notify.Verbosef(s.sink, "wrote %s", s.Path)
	return nil
}

func (s *Store) acquireLock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.LockPath), 0o755); err != nil {
		return nil, errs.Filesystem("prepare lock directory", err)
	}

	if s.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.LockTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		f, err := os.OpenFile(s.LockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(s.LockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, errs.Filesystem("acquire settings lock", err)
		}
		if s.breakStaleLock() {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, errs.Filesystem("acquire settings lock",
				fmt.Errorf("%s is held by another multirust process: %w", s.LockPath, ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (s *Store) breakStaleLock() bool {
	if s.StaleAfter <= 0 {
		return false
	}
	info, err := os.Stat(s.LockPath)
	if err != nil || time.Since(info.ModTime()) < s.StaleAfter {
		return false
	}
	notify.Warnf(s.sink, "removing stale lock %s", s.LockPath)
	return os.Remove(s.LockPath) == nil
}
