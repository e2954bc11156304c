package cli

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"multirust/internal/paths"
	"multirust/internal/toolchain"
)

// showToolVersions prints the compiler and build tool versions of tc.
func showToolVersions(out, errOut io.Writer, tc *toolchain.Toolchain) {
	fmt.Fprintln(out)
	if !tc.Exists() {
		fmt.Fprintln(out, "(toolchain not installed)")
		fmt.Fprintln(out)
		return
	}
	for _, tool := range []string{"rustc", "cargo"} {
		bin := tc.BinaryFile(tool)
		if !paths.IsFile(bin) {
			fmt.Fprintf(out, "(no %s command in toolchain?)\n", tool)
			continue
		}
		cmd := exec.Command(bin, "--version")
		tc.SetLDPath(cmd)
		cmd.Stdout = out
		cmd.Stderr = errOut
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(out, "(failed to run %s)\n", tool)
		}
	}
	fmt.Fprintln(out)
}

func newShowDefaultCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show-default",
		Short: "Show the default toolchain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.showDefault(cmd)
		},
	}
}

func (a *app) showDefault(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	tc, err := a.cfg.FindDefault()
	if err != nil {
		return err
	}
	if tc == nil {
		fmt.Fprintln(out, "no default toolchain configured. run `multirust help default`")
		return nil
	}
	fmt.Fprintf(out, "default toolchain: %s\n", tc.Name())
	fmt.Fprintf(out, "default location: %s\n", tc.Prefix())
	showToolVersions(out, cmd.ErrOrStderr(), tc)
	return nil
}

func newShowOverrideCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show-override",
		Short: "Show the override for the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := a.currentDir()
			if err != nil {
				return err
			}
			tc, reason, err := a.cfg.FindOverride(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if tc == nil {
				fmt.Fprintln(out, "no override")
				return a.showDefault(cmd)
			}
			fmt.Fprintf(out, "override toolchain: %s\n", tc.Name())
			fmt.Fprintf(out, "override location: %s\n", tc.Prefix())
			fmt.Fprintf(out, "override reason: %s\n", reason)
			showToolVersions(out, cmd.ErrOrStderr(), tc)
			return nil
		},
	}
}

func newListOverridesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-overrides",
		Short: "List every directory override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.cfg.ListOverrides()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no overrides")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s\t%s\n", e.Dir, e.Toolchain)
			}
			return nil
		},
	}
}

func newRemoveOverrideCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-override [directory]",
		Short: "Remove the override for a directory (default: the current one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				dir string
				err error
			)
			if len(args) == 1 {
				dir, err = paths.Absolute(args[0])
			} else {
				dir, err = a.currentDir()
			}
			if err != nil {
				return err
			}
			_, err = a.cfg.RemoveOverride(cmd.Context(), dir)
			return err
		},
	}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
