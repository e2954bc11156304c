// Package cli wires the multirust command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"multirust/internal/config"
	"multirust/internal/errs"
	"multirust/internal/logx"
	"multirust/internal/manager"
	"multirust/internal/notify"
	"multirust/internal/paths"
	"multirust/internal/proxy"
	"multirust/internal/shim"
	"multirust/internal/ui"
)

// ExitCodeError carries a proxied child's exit status out of a command.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the root cobra command.
func Execute() {
	a := newApp()
	os.Exit(run(a, newRootCmd(a), os.Args[1:], os.Stderr))
}

func run(a *app, cmd *cobra.Command, args []string, stderr io.Writer) int {
	// Post-run hooks are skipped when a command fails.
	defer a.close()
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	var exitErr *ExitCodeError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

// app holds what every command needs once the root has been set up.
type app struct {
	verbose bool

	layout   paths.Layout
	config   config.Config
	cfg      *manager.Cfg
	sink     notify.Sink
	prompter *ui.Prompter
	logFile  io.Closer

	// Overridable for tests.
	resolveLayout func() (paths.Layout, error)
	newSink       func(verbose bool) notify.Sink
	proxiesActive func() bool
	executable    func() (string, error)
	userHome      func() (string, error)
	getwd         func() (string, error)
	pause         func() error
}

func newApp() *app {
	return &app{
		resolveLayout: paths.Resolve,
		newSink:       func(verbose bool) notify.Sink { return notify.New(verbose) },
		proxiesActive: proxy.ProxiesActive,
		executable:    os.Executable,
		userHome:      paths.UserHome,
		getwd:         os.Getwd,
		pause:         pauseForKey,
	}
}

// Commands that run against metadata of any version.
var versionExempt = map[string]bool{
	"upgrade-data": true,
	"delete-data":  true,
	"install":      true,
	"uninstall":    true,
	"help":         true,
	"completion":   true,
}

// Commands that skip the shim reachability check.
var envCheckExempt = map[string]bool{
	"install":    true,
	"proxy":      true,
	"help":       true,
	"completion": true,
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "multirust",
		Short: "Manage multiple Rust toolchains",
		Long: "multirust installs multiple Rust toolchains side by side and proxies rustc,\n" +
			"cargo and friends to the toolchain selected for the current directory.\n\n" +
			"Run without a command to install multirust for the current user.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := globalFlags(cmd, args); err != nil {
				return err
			}
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMaintenance(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Print verbose output")

	cmd.AddCommand(newUpdateCmd(a))
	cmd.AddCommand(newDefaultCmd(a))
	cmd.AddCommand(newOverrideCmd(a))
	cmd.AddCommand(newShowDefaultCmd(a))
	cmd.AddCommand(newShowOverrideCmd(a))
	cmd.AddCommand(newListOverridesCmd(a))
	cmd.AddCommand(newListToolchainsCmd(a))
	cmd.AddCommand(newRemoveOverrideCmd(a))
	cmd.AddCommand(newRemoveToolchainCmd(a))
	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newProxyCmd(a))
	cmd.AddCommand(newWhichCmd(a))
	cmd.AddCommand(newInstallCmd(a))
	cmd.AddCommand(newUninstallCmd(a))
	cmd.AddCommand(newUpgradeDataCmd(a))
	cmd.AddCommand(newDeleteDataCmd(a))
	cmd.AddCommand(newDocCmd(a))
	cmd.AddCommand(newCtlCmd(a))
	cmd.AddCommand(newConfigCmd(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	layout, err := a.resolveLayout()
	if err != nil {
		return errs.Wrap(errs.ErrConfiguration, "locate multirust home", err)
	}
	cfg, err := config.Load(layout.ConfigFile)
	if err != nil {
		return errs.Wrap(errs.ErrConfiguration, "load "+layout.ConfigFile, err)
	}

	sink := a.newSink(a.verbose)
	if cfg.Log.FileEnabled() {
		logger, closer, err := logx.New(layout.LogsDir)
		if err != nil {
			notify.Warnf(sink, "file logging disabled: %v", err)
		} else {
			a.logFile = closer
			sink = notify.Tee{sink, logx.Sink{Logger: logger}}
		}
	}

	a.layout = layout
	a.config = cfg
	a.sink = sink
	a.cfg = manager.New(layout, cfg, sink)
	if a.prompter == nil {
		a.prompter = ui.NewPrompter()
	}

	name := topLevelName(cmd)
	if name != "" && !versionExempt[name] {
		if err := a.cfg.CheckMetadataVersion(); err != nil {
			return err
		}
	}
	if !envCheckExempt[name] {
		a.checkEnvironment()
	}
	return nil
}

// globalFlags applies the root's persistent flags that lead args and returns
// the rest. Commands with flag parsing disabled receive `multirust -v run …`
// with the -v still in args.
func globalFlags(cmd *cobra.Command, args []string) ([]string, error) {
	if !cmd.DisableFlagParsing {
		return args, nil
	}
	flags := cmd.Root().PersistentFlags()
	for len(args) > 0 {
		arg := args[0]
		if len(arg) < 2 || arg[0] != '-' || arg == "--" {
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		flag := flags.Lookup(name)
		if !strings.HasPrefix(arg, "--") {
			flag = nil
			if len(name) == 1 {
				flag = flags.ShorthandLookup(name)
			}
		}
		if flag == nil || flag.NoOptDefVal == "" {
			break
		}
		if !hasValue {
			value = flag.NoOptDefVal
		}
		if err := flags.Set(flag.Name, value); err != nil {
			return nil, errs.Configuration("invalid value for %s: %v", arg, err)
		}
		args = args[1:]
	}
	return args, nil
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

// topLevelName returns the name of the root's direct child that cmd belongs
// to, or "" for the root itself.
func topLevelName(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	if !cmd.HasParent() {
		return ""
	}
	return cmd.Name()
}

func (a *app) checkEnvironment() {
	if a.proxiesActive() {
		return
	}
	if !shim.SelfInstalled(a.layout) {
		notify.Warnf(a.sink, "multirust is not installed for the current user: "+
			"`rustc` invocations will not be proxied.\n\n"+
			"For more information, run  `multirust install --help`\n")
		return
	}
	notify.Warnf(a.sink, "multirust is installed but is not set up correctly: "+
		"`rustc` invocations will not be proxied.\n\n"+
		"Ensure '%s' is on your PATH, and has priority.\n", a.layout.BinDir)
}

func (a *app) currentDir() (string, error) {
	wd, err := a.getwd()
	if err != nil {
		return "", errs.Detail(errs.ErrLocatingWorkingDir, "could not locate working directory: %v", err)
	}
	return paths.Absolute(wd)
}
