package cli

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"multirust/internal/errs"
	"multirust/internal/proxy"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:                "run <toolchain> <command> [args...]",
		Short:              "Run a command inside a named toolchain",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			args, err := globalFlags(cmd, args)
			if err != nil {
				return err
			}
			if len(args) < 2 {
				return errs.Configuration("usage: multirust run <toolchain> <command> [args...]")
			}
			tc, err := a.cfg.GetToolchain(args[0])
			if err != nil {
				return err
			}
			return a.dispatch(cmd, proxy.ToolchainBuilder(tc), args[1:])
		},
	}
}

func newProxyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:                "proxy <command> [args...]",
		Short:              "Run a command in the toolchain for the current directory",
		Hidden:             true,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			args, err := globalFlags(cmd, args)
			if err != nil {
				return err
			}
			if len(args) < 1 {
				return errs.Configuration("usage: multirust proxy <command> [args...]")
			}
			build := func(tool string) (*exec.Cmd, error) {
				dir, err := a.currentDir()
				if err != nil {
					return nil, err
				}
				return a.cfg.CreateCommandForDir(dir, tool)
			}
			return a.dispatch(cmd, build, args)
		},
	}
}

func (a *app) dispatch(cmd *cobra.Command, build proxy.Builder, args []string) error {
	d := proxy.New(a.sink)
	d.Stdin = cmd.InOrStdin()
	d.Stdout = cmd.OutOrStdout()
	d.Stderr = cmd.ErrOrStderr()

	code, err := d.Dispatch(build, args)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitCodeError{Code: code}
	}
	return nil
}

func newWhichCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "which <command>",
		Short: "Print the binary a command resolves to in the current directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.currentDir()
			if err != nil {
				return err
			}
			bin, err := a.cfg.WhichBinary(dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), bin)
			return nil
		},
	}
}
