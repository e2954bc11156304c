// Package proxy forwards tool invocations to a resolved toolchain and maps
// the child's exit status onto the manager's own.
package proxy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"multirust/internal/errs"
	"multirust/internal/notify"
	"multirust/internal/toolchain"
)

const (
	// Sentinel, anywhere among the forwarded arguments, makes the proxy
	// report itself instead of running the tool.
	Sentinel = "--multirust"
	// Marker is printed in response to Sentinel.
	Marker = "Proxied via multirust"
)

// Builder constructs the child command for a tool.
type Builder func(tool string) (*exec.Cmd, error)

// Dispatcher spawns proxied tools.
type Dispatcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Runner Runner

	sink notify.Sink
}

// New returns a dispatcher wired to the process's standard streams.
func New(sink notify.Sink) *Dispatcher {
	if sink == nil {
		sink = notify.Discard
	}
	return &Dispatcher{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Runner: CmdRunner{},
		sink:   sink,
	}
}

// HasSentinel reports whether args contain the self-test sentinel.
func HasSentinel(args []string) bool {
	for _, a := range args {
		if a == Sentinel {
			return true
		}
	}
	return false
}

// Dispatch runs args[0] with the remaining arguments appended verbatim and
// returns the child's exit code. The error is non-nil only when no child ran.
func (d *Dispatcher) Dispatch(build Builder, args []string) (int, error) {
	if len(args) == 0 {
		return 1, errs.Configuration("no tool given to proxy")
	}
	tool, rest := args[0], args[1:]

	if HasSentinel(rest) {
		fmt.Fprintln(d.Stdout, Marker)
		return 0, nil
	}

	cmd, err := build(tool)
	if err != nil {
		return 1, err
	}
	cmd.Args = append(cmd.Args, rest...)
	cmd.Stdin = d.Stdin
	cmd.Stdout = d.Stdout
	cmd.Stderr = d.Stderr

	notify.Verbosef(d.sink, "running %s", cmd.Path)
	return ExitCode(tool, d.Runner.Run(cmd))
}

// ExitCode maps the result of running a child onto an exit status. A child
// killed without an exit code reports 1.
func ExitCode(tool string, err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return 1, nil
	}
	return 1, errs.Process(fmt.Sprintf("could not run '%s'", tool), err)
}

// ToolchainBuilder resolves tools inside one named toolchain.
func ToolchainBuilder(tc *toolchain.Toolchain) Builder {
	return tc.CreateCommand
}

// ShellCommand runs cmdline under the platform's command interpreter.
func ShellCommand(cmdline string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", "/C", cmdline)
	}
	return exec.Command("/bin/sh", "-c", cmdline)
}

// ProxiesActive reports whether the primary tool on PATH answers the
// sentinel, meaning the installed shims are reachable.
func ProxiesActive() bool {
	cmd := ShellCommand(toolchain.PrimaryTool + " " + Sentinel)
	return cmd.Run() == nil
}
