// Package notify routes leveled messages to the terminal and other sinks.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Level orders reports by importance.
type Level int

const (
	LevelVerbose Level = iota
	LevelNormal
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelNormal:
		return "normal"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Sink receives leveled events from every component.
type Sink interface {
	Report(level Level, msg string)
}

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Inline(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Inline(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Inline(true)
)

// Notifier writes reports to a terminal. Verbose reports are dropped unless
// Verbose is set; info, warnings and errors go to Err with a coloured prefix.
type Notifier struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
	Color   bool

	mu sync.Mutex
}

// New returns a Notifier bound to the process's standard streams.
func New(verbose bool) *Notifier {
	return &Notifier{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Verbose: verbose,
		Color:   isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
}

// Report implements Sink.
func (n *Notifier) Report(level Level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch level {
	case LevelVerbose:
		if n.Verbose {
			fmt.Fprintln(n.Out, msg)
		}
	case LevelNormal:
		fmt.Fprintln(n.Out, msg)
	case LevelInfo:
		fmt.Fprintln(n.Err, n.prefix(infoStyle, "info: ")+msg)
	case LevelWarn:
		fmt.Fprintln(n.Err, n.prefix(warnStyle, "warning: ")+msg)
	default:
		fmt.Fprintln(n.Err, n.prefix(errorStyle, "error: ")+msg)
	}
}

func (n *Notifier) prefix(style lipgloss.Style, text string) string {
	if !n.Color {
		return text
	}
	return style.Render(text)
}

// Tee forwards every report to each sink in order.
type Tee []Sink

// Report implements Sink.
func (t Tee) Report(level Level, msg string) {
	for _, s := range t {
		if s != nil {
			s.Report(level, msg)
		}
	}
}

// Discard drops every report.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Level, string) {}

// Verbosef reports a formatted verbose message.
func Verbosef(s Sink, format string, args ...any) { s.Report(LevelVerbose, fmt.Sprintf(format, args...)) }

// Printf reports a formatted normal message.
func Printf(s Sink, format string, args ...any) { s.Report(LevelNormal, fmt.Sprintf(format, args...)) }

// Infof reports a formatted info message.
func Infof(s Sink, format string, args ...any) { s.Report(LevelInfo, fmt.Sprintf(format, args...)) }

// Warnf reports a formatted warning.
func Warnf(s Sink, format string, args ...any) { s.Report(LevelWarn, fmt.Sprintf(format, args...)) }

// Errorf reports a formatted error.
func Errorf(s Sink, format string, args ...any) { s.Report(LevelError, fmt.Sprintf(format, args...)) }
