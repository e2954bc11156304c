// Package pathreg puts the managed bin directory on the user's PATH.
package pathreg

import "multirust/internal/notify"

// Registrar makes a directory part of the user's persistent PATH. A failed
// write is reported as an errs.ErrPermission error.
type Registrar interface {
	Register(dir string) error
}

// Unregisterer is implemented by registrars that can undo Register.
type Unregisterer interface {
	Unregister() error
}

// New returns the registrar for this platform.
func New(userHome string, sink notify.Sink) Registrar {
	if sink == nil {
		sink = notify.Discard
	}
	return newPlatform(userHome, sink)
}
