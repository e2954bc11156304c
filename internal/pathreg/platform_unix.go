//go:build !windows

package pathreg

import (
	"path/filepath"

	"multirust/internal/notify"
)

func newPlatform(userHome string, sink notify.Sink) Registrar {
	return &Profile{Path: filepath.Join(userHome, ".profile"), Sink: sink}
}
