// Package errs defines the error kinds multirust reports.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by multirust matches exactly one of these
// through errors.Is.
var (
	// ErrConfiguration covers unresolvable toolchains, missing defaults and
	// metadata version mismatches.
	ErrConfiguration = errors.New("configuration error")

	// ErrFilesystem covers failed copy, move, mkdir, chmod and remove calls.
	ErrFilesystem = errors.New("filesystem error")

	// ErrPermission indicates the registry or profile could not be written.
	ErrPermission = errors.New("permission denied")

	// ErrProcess indicates a child process could not be spawned. A child that
	// ran and exited non-zero is not an error.
	ErrProcess = errors.New("process error")

	// ErrUserAborted indicates an operation stopped for lack of user
	// confirmation. A plain "no" at a prompt is not an error: the command
	// prints "aborting" and exits 0.
	ErrUserAborted = errors.New("aborted by user")
)

// Configuration errors that callers test for directly.
var (
	ErrNoDefaultToolchain    = Configuration("no default toolchain configured")
	ErrToolchainNotInstalled = Configuration("toolchain not installed")
	ErrMetadataVersion       = Configuration("metadata version mismatch")
	ErrLocatingWorkingDir    = Configuration("could not locate working directory")
)

// Error attaches a kind and the failing operation to an underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Op != "":
		return e.Op
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.Error()
	}
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error's kind in addition to the cause chain.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Configuration builds a configuration error with a formatted message.
func Configuration(format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Op: fmt.Sprintf(format, args...)}
}

// Filesystem wraps err as a filesystem failure of op.
func Filesystem(op string, err error) error {
	return &Error{Kind: ErrFilesystem, Op: op, Err: err}
}

// Permission wraps err as a permission failure of op.
func Permission(op string, err error) error {
	return &Error{Kind: ErrPermission, Op: op, Err: err}
}

// Process wraps err as a spawn failure of op.
func Process(op string, err error) error {
	return &Error{Kind: ErrProcess, Op: op, Err: err}
}

// Wrap attaches op to an existing kinded error, keeping its kind.
func Wrap(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports which kind err belongs to, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrConfiguration, ErrFilesystem, ErrPermission, ErrProcess, ErrUserAborted} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

type detailed struct {
	msg   string
	cause error
}

func (d *detailed) Error() string { return d.msg }
func (d *detailed) Unwrap() error { return d.cause }

// Detail replaces the message of a sentinel while keeping it matchable with
// errors.Is, so callers see "toolchain 'nightly' is not installed" rather than
// the bare sentinel text.
func Detail(sentinel error, format string, args ...any) error {
	return &detailed{msg: fmt.Sprintf(format, args...), cause: sentinel}
}
