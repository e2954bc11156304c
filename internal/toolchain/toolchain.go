// Package toolchain manages one installed toolchain prefix.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"multirust/internal/errs"
	"multirust/internal/notify"
	"multirust/internal/paths"
)

// PrimaryTool is the binary whose presence marks a toolchain as installed.
const PrimaryTool = "rustc"

// Installer populates an install prefix for a named toolchain.
type Installer interface {
	Install(ctx context.Context, name, prefix string) error
}

// Toolchain is one named toolchain under the managed home. Installation state
// is derived from the filesystem on every query.
type Toolchain struct {
	name   string
	prefix string
	sink   notify.Sink
}

// New returns the toolchain called name inside layout.
func New(layout paths.Layout, name string, sink notify.Sink) (*Toolchain, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = notify.Discard
	}
	return &Toolchain{name: name, prefix: layout.ToolchainDir(name), sink: sink}, nil
}

// ValidateName rejects names that cannot be used as a directory under the
// toolchains root.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errs.Configuration("toolchain name is empty")
	case name == "." || name == "..":
		return errs.Configuration("invalid toolchain name '%s'", name)
	case strings.ContainsAny(name, `/\`):
		return errs.Configuration("toolchain name '%s' must not contain path separators", name)
	}
	return nil
}

// Name returns the toolchain's identifier.
func (t *Toolchain) Name() string { return t.name }

// Prefix returns the install prefix.
func (t *Toolchain) Prefix() string { return t.prefix }

// BinaryFile returns the absolute path of tool inside the prefix.
func (t *Toolchain) BinaryFile(tool string) string {
	return filepath.Join(t.prefix, "bin", paths.ExecutableName(tool))
}

// LibDir returns the directory holding the toolchain's shared libraries.
func (t *Toolchain) LibDir() string {
	return filepath.Join(t.prefix, "lib")
}

// DocFile returns a path under the toolchain's HTML documentation.
func (t *Toolchain) DocFile(relative string) string {
	return filepath.Join(t.prefix, "share", "doc", "rust", "html", filepath.FromSlash(relative))
}

// Exists reports whether the primary compiler is present under the prefix.
func (t *Toolchain) Exists() bool {
	return paths.IsFile(t.BinaryFile(PrimaryTool))
}

// Install runs installer against the prefix unconditionally.
func (t *Toolchain) Install(ctx context.Context, installer Installer) error {
	notify.Verbosef(t.sink, "installing toolchain '%s' into %s", t.name, t.prefix)
	if err := installer.Install(ctx, t.name, t.prefix); err != nil {
		return err
	}
	if !t.Exists() {
		return errs.Configuration("toolchain '%s' installed but %s is missing", t.name, t.BinaryFile(PrimaryTool))
	}
	notify.Infof(t.sink, "toolchain '%s' installed", t.name)
	return nil
}

// InstallIfMissing runs installer only when the toolchain does not exist. It
// reports whether an install happened.
func (t *Toolchain) InstallIfMissing(ctx context.Context, installer Installer) (bool, error) {
	if t.Exists() {
		notify.Verbosef(t.sink, "toolchain '%s' already installed", t.name)
		return false, nil
	}
	return true, t.Install(ctx, installer)
}

// Remove deletes the whole prefix. Removing a toolchain that is not there
// succeeds.
func (t *Toolchain) Remove() error {
	if _, err := os.Lstat(t.prefix); errors.Is(err, os.ErrNotExist) {
		notify.Infof(t.sink, "no toolchain installed for '%s'", t.name)
		return nil
	}
	notify.Verbosef(t.sink, "removing directory %s", t.prefix)
	if err := os.RemoveAll(t.prefix); err != nil {
		return errs.Filesystem(fmt.Sprintf("remove toolchain '%s'", t.name), err)
	}
	notify.Infof(t.sink, "toolchain '%s' uninstalled", t.name)
	return nil
}

// CreateCommand builds the command for tool inside the toolchain with the
// library search path pointing at the toolchain's lib directory.
func (t *Toolchain) CreateCommand(tool string) (*exec.Cmd, error) {
	if !t.Exists() {
		return nil, errs.Detail(errs.ErrToolchainNotInstalled, "toolchain '%s' is not installed", t.name)
	}
	bin := t.BinaryFile(tool)
	if !paths.IsFile(bin) {
		return nil, errs.Configuration("toolchain '%s' does not contain binary '%s'", t.name, tool)
	}
	cmd := exec.Command(bin)
	t.SetLDPath(cmd)
	return cmd, nil
}

// SetLDPath prepends the toolchain's library directory to the platform's
// dynamic library search variable in cmd's environment.
func (t *Toolchain) SetLDPath(cmd *exec.Cmd) {
	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = PrependEnvPath(env, LDPathVar(), t.LibDir())
}

// LDPathVar names the dynamic library search variable for this platform.
func LDPathVar() string {
	switch runtime.GOOS {
	case "windows":
		return "PATH"
	case "darwin":
		return "DYLD_LIBRARY_PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// PrependEnvPath returns env with dir placed first in the list variable key.
func PrependEnvPath(env []string, key, dir string) []string {
	out := make([]string, 0, len(env)+1)
	value := dir
	found := false
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if ok && envKeyEqual(k, key) {
			if !found && v != "" {
				value = dir + string(os.PathListSeparator) + v
			}
			found = true
			continue
		}
		out = append(out, kv)
	}
	return append(out, key+"="+value)
}

func envKeyEqual(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
