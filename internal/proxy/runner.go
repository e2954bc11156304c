package proxy

import (
	"os"
	"os/exec"
	"os/signal"
)

// Runner starts a prepared command and waits for it.
type Runner interface {
	Run(cmd *exec.Cmd) error
}

// CmdRunner runs commands as real child processes. Interrupts are left to
// the child, which shares the terminal; the manager only observes the exit.
type CmdRunner struct{}

func (CmdRunner) Run(cmd *exec.Cmd) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-sigs:
			case <-done:
				return
			}
		}
	}()

	return cmd.Run()
}

var _ Runner = CmdRunner{}
