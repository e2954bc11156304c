// Package shim installs the manager into the managed bin directory together
// with forwarding scripts for every proxied tool.
package shim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"multirust/internal/errs"
	"multirust/internal/notify"
	"multirust/internal/paths"
)

// Tools lists every tool that gets a forwarding shim.
var Tools = []string{"rustc", "rustdoc", "cargo", "rust-lldb", "rust-gdb"}

// Options configures Install.
type Options struct {
	Layout paths.Layout
	// Source is the running executable.
	Source string
	// Move renames Source into place instead of copying it.
	Move bool
	Sink notify.Sink
}

// Install places the manager binary in the bin directory and regenerates
// every shim. Each step is idempotent, so a partial install can be re-run.
func Install(opts Options) error {
	sink := opts.Sink
	if sink == nil {
		sink = notify.Discard
	}
	bin := opts.Layout.BinDir

	if err := os.MkdirAll(bin, 0o755); err != nil {
		return errs.Filesystem("create bin directory", err)
	}

	dest := opts.Layout.SelfBinary()
	if err := placeBinary(opts.Source, dest, opts.Move); err != nil {
		return err
	}
	notify.Verbosef(sink, "installed %s", dest)

	for _, tool := range Tools {
		if err := writeShim(filepath.Join(bin, tool+".bat"), BatchScript(tool), 0o644); err != nil {
			return err
		}
		if err := writeShim(filepath.Join(bin, tool), ShellScript(tool), 0o755); err != nil {
			return err
		}
		notify.Verbosef(sink, "created proxy for %s", tool)
	}
	return nil
}

// ShellScript is the POSIX forwarding script for tool.
func ShellScript(tool string) string {
	return fmt.Sprintf("#!/bin/sh\n\"`dirname $0`/multirust\" proxy %s \"$@\"\n", tool)
}

// BatchScript is the Windows forwarding script for tool.
func BatchScript(tool string) string {
	return fmt.Sprintf("@\"%%~dp0\\multirust\" proxy %s %%*\r\n", tool)
}

// SelfInstalled reports whether the manager binary is present in layout's
// bin directory.
func SelfInstalled(layout paths.Layout) bool {
	return paths.IsFile(layout.SelfBinary())
}

// IsInstalledBinary reports whether exe is the binary inside layout's bin
// directory.
func IsInstalledBinary(layout paths.Layout, exe string) bool {
	return sameFile(exe, layout.SelfBinary())
}

func placeBinary(src, dest string, move bool) error {
	if sameFile(src, dest) {
		return nil
	}
	if move {
		if err := os.Rename(src, dest); err != nil {
			return errs.Filesystem("move multirust", err)
		}
		return chmodExecutable(dest)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".multirust-*")
	if err != nil {
		return errs.Filesystem("copy multirust", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	in, err := os.Open(src)
	if err != nil {
		tmp.Close()
		return errs.Filesystem("copy multirust", err)
	}
	_, err = io.Copy(tmp, in)
	in.Close()
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errs.Filesystem("copy multirust", err)
	}
	if err := chmodExecutable(tmp.Name()); err != nil {
		return err
	}
	// Renaming over a running executable is allowed on POSIX; on Windows the
	// destination must not be in use.
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return errs.Filesystem("copy multirust", err)
	}
	return nil
}

func writeShim(path, contents string, mode os.FileMode) error {
	if err := os.WriteFile(path, []byte(contents), mode); err != nil {
		return errs.Filesystem("write "+filepath.Base(path), err)
	}
	// WriteFile keeps the mode of an existing file.
	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, mode); err != nil {
			return errs.Filesystem("chmod "+filepath.Base(path), err)
		}
	}
	return nil
}

func chmodExecutable(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(path, 0o755); err != nil {
		return errs.Filesystem("chmod "+filepath.Base(path), err)
	}
	return nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
