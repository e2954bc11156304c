package cli

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"multirust/internal/errs"
	"multirust/internal/notify"
	"multirust/internal/pathreg"
	"multirust/internal/proxy"
	"multirust/internal/shim"
	"multirust/internal/ui"
)

const deleteDataQuestion = "This will delete all toolchains, overrides, aliases, and other multirust data associated with this user. Continue?"

func newInstallCmd(a *app) *cobra.Command {
	var (
		move      bool
		addToPath bool
	)
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install multirust and its proxies for the current user",
		Long: "Copy multirust into <home>/bin together with proxies for rustc, rustdoc,\n" +
			"cargo, rust-lldb and rust-gdb. With --add-to-path, also put that directory\n" +
			"on PATH through the shell profile or, on Windows, the user environment.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.selfInstall(move, addToPath)
		},
	}
	cmd.Flags().BoolVar(&move, "move", false, "Move the running binary instead of copying it")
	cmd.Flags().BoolVar(&addToPath, "add-to-path", false, "Register the bin directory on PATH")
	return cmd
}

func (a *app) selfInstall(move, addToPath bool) error {
	exe, err := a.executable()
	if err != nil {
		return errs.Detail(errs.ErrLocatingWorkingDir, "could not locate the running executable: %v", err)
	}
	if err := shim.Install(shim.Options{Layout: a.layout, Source: exe, Move: move, Sink: a.sink}); err != nil {
		return err
	}
	if addToPath {
		reg, err := a.registrar()
		if err != nil {
			return err
		}
		if err := reg.Register(a.layout.BinDir); err != nil {
			return err
		}
	}
	notify.Infof(a.sink, "Installed")
	return nil
}

func (a *app) registrar() (pathreg.Registrar, error) {
	home, err := a.userHome()
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "locate user home", err)
	}
	return pathreg.New(home, a.sink), nil
}

func newUninstallCmd(a *app) *cobra.Command {
	var noPrompt bool
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove multirust and all of its data for the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !noPrompt {
				ok, err := a.prompter.Confirm(deleteDataQuestion)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "aborting")
					return nil
				}
			}
			return a.uninstall(cmd)
		},
	}
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Do not ask for confirmation")
	return cmd
}

func (a *app) uninstall(cmd *cobra.Command) error {
	reg, err := a.registrar()
	if err != nil {
		return err
	}
	if u, ok := reg.(pathreg.Unregisterer); ok {
		if err := u.Unregister(); err != nil {
			return err
		}
	} else {
		notify.Warnf(a.sink, "This will not attempt to remove the '%s' directory from your PATH", a.layout.BinDir)
	}

	// Windows locks the running binary, so a detached shell removes home
	// after this process exits.
	if runtime.GOOS == "windows" {
		script := fmt.Sprintf("echo Uninstalling... & ping -n 4 127.0.0.1>nul & rd /S /Q \"%s\" & echo Uninstalled", a.layout.Home)
		c := exec.Command("cmd", "/C", "start", "cmd", "/C", script)
		if err := c.Start(); err != nil {
			return errs.Process("start uninstaller", err)
		}
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Uninstalling...")
	a.close()
	if err := os.RemoveAll(a.layout.Home); err != nil {
		return errs.Filesystem("remove "+a.layout.Home, err)
	}
	return nil
}

// runMaintenance is the flow for a bare `multirust`, typically a freshly
// downloaded binary run by double click.
func (a *app) runMaintenance(cmd *cobra.Command) error {
	err := a.maybeInstall(cmd)
	fmt.Fprintln(cmd.OutOrStdout())
	if ui.StdinIsTerminal() {
		if perr := a.pause(); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

func (a *app) maybeInstall(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	exe, err := a.executable()
	if err != nil {
		return errs.Detail(errs.ErrLocatingWorkingDir, "could not locate the running executable: %v", err)
	}

	switch {
	case !shim.SelfInstalled(a.layout):
		ok, err := a.prompter.Confirm("Install multirust now?")
		if err != nil || !ok {
			return err
		}
		addToPath, err := a.prompter.Confirm("Add multirust to PATH?")
		if err != nil {
			return err
		}
		return a.selfInstall(false, addToPath)
	case !shim.IsInstalledBinary(a.layout, exe):
		fmt.Fprintln(out, "Existing multirust installation detected.")
		ok, err := a.prompter.Confirm("Replace or update it now?")
		if err != nil || !ok {
			return err
		}
		return a.selfInstall(false, false)
	default:
		fmt.Fprintln(out, "This is the currently installed multirust binary.")
		return nil
	}
}

func pauseForKey() error {
	var c *exec.Cmd
	switch {
	case runtime.GOOS == "windows":
		c = proxy.ShellCommand("pause")
	case hasBash():
		// read -n is a bash extension.
		c = exec.Command("bash", "-c", `read -p "Press any key to continue..." -n 1 -s && echo`)
	default:
		c = proxy.ShellCommand(`printf "Press enter to continue..." && read _`)
	}
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return errs.Process("wait for key press", err)
	}
	return nil
}

func hasBash() bool {
	_, err := exec.LookPath("bash")
	return err == nil
}
