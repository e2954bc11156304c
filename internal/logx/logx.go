// Package logx writes an optional per-run log file.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"multirust/internal/notify"
)

// New creates a logger that writes to a timestamped file inside dir. The
// returned closer should be closed when logging is no longer needed.
func New(dir string) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(dir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := log.New(file, "", log.LstdFlags|log.Lmicroseconds)
	return logger, file, nil
}

// Sink records every report, verbose ones included, through logger.
type Sink struct {
	Logger Logger
}

// Logger keeps the subset of log.Logger used here.
type Logger interface {
	Printf(format string, v ...any)
}

// Report implements notify.Sink.
func (s Sink) Report(level notify.Level, msg string) {
	s.Logger.Printf("[%s] %s", level, msg)
}
