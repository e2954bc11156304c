// Package paths resolves the managed home and its layout.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"
)

// HomeEnv overrides the managed home directory when set.
const HomeEnv = "MULTIRUST_HOME"

// Layout captures canonical locations inside the managed home.
type Layout struct {
	Home          string
	BinDir        string
	ToolchainsDir string
	DownloadsDir  string
	LogsDir       string
	SettingsFile  string
	LockFile      string
	ConfigFile    string

	// Legacy flat-file store, read only by upgrade-data.
	LegacyVersionFile   string
	LegacyDefaultFile   string
	LegacyOverridesFile string
}

// Resolve determines the managed home from $MULTIRUST_HOME or ~/.multirust.
func Resolve() (Layout, error) {
	if override, ok := os.LookupEnv(HomeEnv); ok && override != "" {
		expanded, err := homedir.Expand(override)
		if err != nil {
			return Layout{}, fmt.Errorf("expand %s: %w", HomeEnv, err)
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return Layout{}, fmt.Errorf("resolve %s: %w", HomeEnv, err)
		}
		return New(abs), nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return Layout{}, fmt.Errorf("detect user home: %w", err)
	}
	return New(filepath.Join(home, ".multirust")), nil
}

// New returns the layout rooted at home.
func New(home string) Layout {
	return Layout{
		Home:                home,
		BinDir:              filepath.Join(home, "bin"),
		ToolchainsDir:       filepath.Join(home, "toolchains"),
		DownloadsDir:        filepath.Join(home, "downloads"),
		LogsDir:             filepath.Join(home, "logs"),
		SettingsFile:        filepath.Join(home, "settings.toml"),
		LockFile:            filepath.Join(home, "settings.lock"),
		ConfigFile:          filepath.Join(home, "config.yaml"),
		LegacyVersionFile:   filepath.Join(home, "version"),
		LegacyDefaultFile:   filepath.Join(home, "default"),
		LegacyOverridesFile: filepath.Join(home, "overrides"),
	}
}

// ToolchainDir returns the install prefix for the named toolchain.
func (l Layout) ToolchainDir(name string) string {
	return filepath.Join(l.ToolchainsDir, name)
}

// SelfBinary returns the path of the manager binary inside the bin directory.
func (l Layout) SelfBinary() string {
	return filepath.Join(l.BinDir, ExecutableName("multirust"))
}

// UserHome returns the user's home directory, which holds the shell profile.
func UserHome() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	return home, nil
}

// ExecutableName appends the platform executable suffix.
func ExecutableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// Absolute expands a leading ~ and makes dir absolute and clean.
func Absolute(dir string) (string, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", dir, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	return abs, nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// IsFile is FileExists without the error, for existence probes.
func IsFile(path string) bool {
	ok, err := FileExists(path)
	return err == nil && ok
}
