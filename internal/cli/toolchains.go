package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	summaryNameStyle = lipgloss.NewStyle().Bold(true)
	summaryOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	summaryFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func newUpdateCmd(a *app) *cobra.Command {
	var src installSource
	cmd := &cobra.Command{
		Use:   "update [toolchain]",
		Short: "Install or update a toolchain, or every tracked channel",
		Long: "With a toolchain name, (re)install it. Without one, update every channel\n" +
			"listed under `channels` in config.yaml and print a summary.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if src.explicit(a) != nil {
					return fmt.Errorf("--installer, --copy-local and --link-local need a toolchain name")
				}
				return a.updateAllChannels(cmd)
			}
			tc, err := a.cfg.GetToolchain(args[0])
			if err != nil {
				return err
			}
			inst := src.explicit(a)
			if inst == nil {
				if inst, err = a.distInstaller(); err != nil {
					return err
				}
			}
			return tc.Install(cmd.Context(), inst)
		},
	}
	src.register(cmd)
	return cmd
}

func (a *app) updateAllChannels(cmd *cobra.Command) error {
	if _, err := a.distInstaller(); err != nil {
		return err
	}
	results := a.cfg.UpdateAllChannels(cmd.Context())
	out := cmd.OutOrStdout()
	color := a.colorOutput(out)

	width := 0
	for _, r := range results {
		width = max(width, len(r.Name))
	}

	fmt.Fprintln(out)
	for _, r := range results {
		name := strings.Repeat(" ", width-len(r.Name)) + r.Name
		status := "succeeded"
		style := summaryOKStyle
		if r.Err != nil {
			status = "FAILED"
			style = summaryFailStyle
		}
		fmt.Fprintf(out, "%s update %s\n", paint(color, summaryNameStyle, name), paint(color, style, status))
	}
	fmt.Fprintln(out)

	for _, r := range results {
		fmt.Fprintf(out, "%s revision:\n", paint(color, summaryNameStyle, r.Name))
		tc, err := a.cfg.GetToolchain(r.Name)
		if err != nil {
			return err
		}
		showToolVersions(out, cmd.ErrOrStderr(), tc)
	}
	return nil
}

func newDefaultCmd(a *app) *cobra.Command {
	var src installSource
	cmd := &cobra.Command{
		Use:   "default <toolchain>",
		Short: "Set the default toolchain, installing it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := a.ensureInstalled(cmd, args[0], &src)
			if err != nil {
				return err
			}
			return a.cfg.SetDefault(cmd.Context(), tc.Name())
		},
	}
	src.register(cmd)
	return cmd
}

func newOverrideCmd(a *app) *cobra.Command {
	var src installSource
	cmd := &cobra.Command{
		Use:   "override <toolchain>",
		Short: "Pin a toolchain to the current directory, installing it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.currentDir()
			if err != nil {
				return err
			}
			tc, err := a.ensureInstalled(cmd, args[0], &src)
			if err != nil {
				return err
			}
			return a.cfg.SetOverride(cmd.Context(), dir, tc.Name())
		},
	}
	src.register(cmd)
	return cmd
}

func newRemoveToolchainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-toolchain <toolchain>",
		Short: "Uninstall a toolchain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := a.cfg.GetToolchain(args[0])
			if err != nil {
				return err
			}
			return tc.Remove()
		},
	}
}

func newListToolchainsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-toolchains",
		Short: "List installed toolchains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := a.cfg.ListToolchains()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "no installed toolchains")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func paint(color bool, style lipgloss.Style, text string) string {
	if !color {
		return text
	}
	return style.Render(text)
}

func (a *app) colorOutput(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && isTerminal(f.Fd())
}
