// Package manager owns the managed home: the default pointer, directory
// overrides, the metadata version gate and toolchain resolution.
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"multirust/internal/config"
	"multirust/internal/dist"
	"multirust/internal/errs"
	"multirust/internal/notify"
	"multirust/internal/paths"
	"multirust/internal/settings"
	"multirust/internal/toolchain"
)

// Cfg is the configuration store for one managed home.
type Cfg struct {
	Layout    paths.Layout
	Config    config.Config
	Store     *settings.Store
	Overrides *settings.OverrideDB

	// Installer is used when no explicit install source is given. Nil means
	// fetch from Config.DistRoot.
	Installer toolchain.Installer

	sink notify.Sink
}

// New returns the store rooted at layout.
func New(layout paths.Layout, cfg config.Config, sink notify.Sink) *Cfg {
	if sink == nil {
		sink = notify.Discard
	}
	store := settings.NewStore(layout, sink)
	return &Cfg{
		Layout:    layout,
		Config:    cfg,
		Store:     store,
		Overrides: settings.NewOverrideDB(store, sink),
		sink:      sink,
	}
}

// Sink returns the notifier every component of this home reports through.
func (c *Cfg) Sink() notify.Sink { return c.sink }

// DistInstaller returns the installer used by update, default and override
// when no local source is given.
func (c *Cfg) DistInstaller() toolchain.Installer {
	if c.Installer != nil {
		return c.Installer
	}
	return dist.Dist{
		Root:         c.Config.DistRoot,
		DownloadsDir: c.Layout.DownloadsDir,
		Sink:         c.sink,
	}
}

// GetToolchain returns the named toolchain whether or not it is installed.
func (c *Cfg) GetToolchain(name string) (*toolchain.Toolchain, error) {
	return toolchain.New(c.Layout, name, c.sink)
}

// FindDefault returns the default toolchain, or nil when none is set. The
// toolchain is not required to be installed.
func (c *Cfg) FindDefault() (*toolchain.Toolchain, error) {
	st, err := c.Store.Load()
	if err != nil {
		return nil, err
	}
	if st.DefaultToolchain == "" {
		return nil, nil
	}
	return c.GetToolchain(st.DefaultToolchain)
}

// FindOverride returns the toolchain pinned to exactly dir and the reason it
// was pinned, or nil when dir has no override.
func (c *Cfg) FindOverride(dir string) (*toolchain.Toolchain, string, error) {
	o, ok, err := c.Overrides.Find(dir)
	if err != nil || !ok {
		return nil, "", err
	}
	tc, err := c.GetToolchain(o.Toolchain)
	if err != nil {
		return nil, "", err
	}
	return tc, o.Reason, nil
}

// Resolution is the toolchain selected for a directory.
type Resolution struct {
	Toolchain *toolchain.Toolchain
	// Reason is the override's reason, empty when the default was used.
	Reason   string
	Override bool
}

// ResolveEffective picks the toolchain for dir: its exact override if one is
// registered, otherwise the default. The selected toolchain must be
// installed; a dangling override never falls back to the default.
func (c *Cfg) ResolveEffective(dir string) (Resolution, error) {
	tc, reason, err := c.FindOverride(dir)
	if err != nil {
		return Resolution{}, err
	}
	if tc != nil {
		if !tc.Exists() {
			return Resolution{}, errs.Detail(errs.ErrToolchainNotInstalled,
				"toolchain '%s' is not installed (%s)", tc.Name(), reason)
		}
		return Resolution{Toolchain: tc, Reason: reason, Override: true}, nil
	}

	tc, err = c.FindDefault()
	if err != nil {
		return Resolution{}, err
	}
	if tc == nil {
		return Resolution{}, errs.Detail(errs.ErrNoDefaultToolchain,
			"no default toolchain configured. run `multirust default <toolchain>`")
	}
	if !tc.Exists() {
		return Resolution{}, errs.Detail(errs.ErrToolchainNotInstalled,
			"default toolchain '%s' is not installed", tc.Name())
	}
	return Resolution{Toolchain: tc}, nil
}

// CreateCommandForDir builds the command for tool in the toolchain resolved
// for dir.
func (c *Cfg) CreateCommandForDir(dir, tool string) (*exec.Cmd, error) {
	res, err := c.ResolveEffective(dir)
	if err != nil {
		return nil, err
	}
	return res.Toolchain.CreateCommand(tool)
}

// WhichBinary returns the path tool resolves to from dir.
func (c *Cfg) WhichBinary(dir, tool string) (string, error) {
	res, err := c.ResolveEffective(dir)
	if err != nil {
		return "", err
	}
	bin := res.Toolchain.BinaryFile(tool)
	if !paths.IsFile(bin) {
		return "", errs.Configuration("toolchain '%s' does not contain binary '%s'", res.Toolchain.Name(), tool)
	}
	return bin, nil
}

// ListToolchains returns the names of every toolchain directory, sorted.
func (c *Cfg) ListToolchains() ([]string, error) {
	entries, err := os.ReadDir(c.Layout.ToolchainsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errs.Filesystem("list toolchains", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		// Stat follows link-local symlinks.
		ok, err := paths.DirExists(filepath.Join(c.Layout.ToolchainsDir, e.Name()))
		if err != nil || !ok {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ListOverrides returns every override, sorted by directory.
func (c *Cfg) ListOverrides() ([]settings.Entry, error) {
	return c.Overrides.List()
}

// SetDefault points the default at name. The toolchain need not be
// installed.
func (c *Cfg) SetDefault(ctx context.Context, name string) error {
	if err := toolchain.ValidateName(name); err != nil {
		return err
	}
	err := c.Store.Update(ctx, func(st *settings.Settings) error {
		st.DefaultToolchain = name
		return nil
	})
	if err != nil {
		return err
	}
	notify.Infof(c.sink, "default toolchain set to '%s'", name)
	return nil
}

// SetOverride pins name to dir.
func (c *Cfg) SetOverride(ctx context.Context, dir, name string) error {
	if err := toolchain.ValidateName(name); err != nil {
		return err
	}
	key := filepath.Clean(dir)
	return c.Overrides.Set(ctx, key, name, fmt.Sprintf("directory override for '%s'", key))
}

// RemoveOverride drops the override for dir, if any.
func (c *Cfg) RemoveOverride(ctx context.Context, dir string) (bool, error) {
	return c.Overrides.Remove(ctx, dir)
}

// CheckMetadataVersion fails unless the data on disk uses the current
// schema.
func (c *Cfg) CheckMetadataVersion() error {
	version, err := settings.CurrentVersion(c.Layout, c.Store)
	if err != nil {
		return err
	}
	if version != settings.MetadataVersion {
		return errs.Detail(errs.ErrMetadataVersion,
			"multirust metadata is out of date: found version '%s', expected '%s'. run `multirust upgrade-data`",
			version, settings.MetadataVersion)
	}
	return nil
}

// UpgradeData migrates legacy metadata. It reports whether anything changed.
func (c *Cfg) UpgradeData(ctx context.Context) (bool, error) {
	return settings.Upgrade(ctx, c.Layout, c.Store, c.sink)
}

// DeleteData removes every toolchain, the settings store and downloaded
// archives. The bin directory and config.yaml are kept.
func (c *Cfg) DeleteData() error {
	targets := []string{
		c.Layout.ToolchainsDir,
		c.Layout.DownloadsDir,
		c.Layout.SettingsFile,
		c.Layout.LockFile,
		c.Layout.LegacyVersionFile,
		c.Layout.LegacyDefaultFile,
		c.Layout.LegacyOverridesFile,
	}
	for _, target := range targets {
		notify.Verbosef(c.sink, "removing %s", target)
		if err := os.RemoveAll(target); err != nil {
			return errs.Filesystem("delete data", err)
		}
	}
	notify.Infof(c.sink, "deleted multirust data in %s", c.Layout.Home)
	return nil
}

// ChannelResult is the outcome of updating one tracked channel.
type ChannelResult struct {
	Name string
	Err  error
}

// UpdateAllChannels reinstalls every tracked channel from the distribution
// installer. Failures are collected rather than returned.
func (c *Cfg) UpdateAllChannels(ctx context.Context) []ChannelResult {
	installer := c.DistInstaller()
	results := make([]ChannelResult, 0, len(c.Config.Channels))
	for _, name := range c.Config.Channels {
		res := ChannelResult{Name: name}
		tc, err := c.GetToolchain(name)
		if err == nil {
			err = tc.Install(ctx, installer)
		}
		if err != nil {
			notify.Errorf(c.sink, "update of '%s' failed: %v", name, err)
			res.Err = err
		}
		results = append(results, res)
	}
	return results
}
