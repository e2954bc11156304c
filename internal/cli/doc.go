package cli

import (
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"multirust/internal/errs"
	"multirust/internal/notify"
	"multirust/internal/paths"
)

func newDocCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Open the documentation of the current toolchain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := a.currentDir()
			if err != nil {
				return err
			}
			res, err := a.cfg.ResolveEffective(dir)
			if err != nil {
				return err
			}
			page := "std/index.html"
			if all {
				page = "index.html"
			}
			file := res.Toolchain.DocFile(page)
			if !paths.IsFile(file) {
				return errs.Configuration("toolchain '%s' has no local documentation at %s", res.Toolchain.Name(), file)
			}
			notify.Verbosef(a.sink, "opening %s", file)
			if err := openBrowser(file).Start(); err != nil {
				return errs.Process("open documentation", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Open the documentation index instead of the standard library")
	return cmd
}

func openBrowser(file string) *exec.Cmd {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("cmd", "/C", "start", "", file)
	case "darwin":
		return exec.Command("open", file)
	default:
		return exec.Command("xdg-open", file)
	}
}
