// Package ui asks the user yes/no questions.
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"
)

// Prompter asks confirmation questions. On a terminal it uses an interactive
// prompt; otherwise it reads one line from In.
type Prompter struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool

	lines *bufio.Reader
}

// NewPrompter returns a prompter bound to the process's standard streams.
func NewPrompter() *Prompter {
	return &Prompter{
		In:          os.Stdin,
		Out:         os.Stdout,
		Interactive: StdinIsTerminal(),
	}
}

// StdinIsTerminal reports whether standard input is attached to a terminal.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Confirm asks question and reports whether the user answered yes. Anything
// other than an explicit yes counts as no.
func (p *Prompter) Confirm(question string) (bool, error) {
	if p.Interactive {
		var confirmed bool
		prompt := &survey.Confirm{
			Message: question,
			Default: false,
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return false, nil
			}
			return false, err
		}
		return confirmed, nil
	}

	fmt.Fprintf(p.Out, "%s (y/n) ", question)
	if p.lines == nil {
		p.lines = bufio.NewReader(p.In)
	}
	line, err := p.lines.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return ParseAnswer(line), nil
}

// ParseAnswer accepts "y" or "Y" as yes.
func ParseAnswer(line string) bool {
	switch strings.TrimSpace(line) {
	case "y", "Y":
		return true
	default:
		return false
	}
}
