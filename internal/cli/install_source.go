package cli

import (
	"github.com/spf13/cobra"

	"multirust/internal/config"
	"multirust/internal/dist"
	"multirust/internal/errs"
	"multirust/internal/toolchain"
)

// installSource holds the flags that pick where a toolchain comes from.
type installSource struct {
	installers []string
	copyLocal  string
	linkLocal  string
}

func (s *installSource) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&s.installers, "installer", nil, "Install from the given installer archive (repeatable)")
	cmd.Flags().StringVar(&s.copyLocal, "copy-local", "", "Install by copying a local toolchain directory")
	cmd.Flags().StringVar(&s.linkLocal, "link-local", "", "Install by linking to a local toolchain directory")
	cmd.MarkFlagsMutuallyExclusive("installer", "copy-local", "link-local")
}

// explicit returns the installer named by the flags, or nil when none was
// given.
func (s *installSource) explicit(a *app) toolchain.Installer {
	switch {
	case len(s.installers) > 0:
		return dist.Archives{Paths: s.installers, Sink: a.sink}
	case s.copyLocal != "":
		return dist.Local{Source: s.copyLocal, Sink: a.sink}
	case s.linkLocal != "":
		return dist.Local{Source: s.linkLocal, Link: true, Sink: a.sink}
	default:
		return nil
	}
}

// distInstaller returns the distribution installer after checking the
// configured root is usable.
func (a *app) distInstaller() (toolchain.Installer, error) {
	if problems := config.Errors(a.config.Validate()); len(problems) > 0 {
		return nil, errs.Configuration("invalid %s: %s", a.layout.ConfigFile, problems[0].Message)
	}
	return a.cfg.DistInstaller(), nil
}

// ensureInstalled installs name from the explicit source if one was given,
// otherwise from the distribution when it is missing.
func (a *app) ensureInstalled(cmd *cobra.Command, name string, src *installSource) (*toolchain.Toolchain, error) {
	tc, err := a.cfg.GetToolchain(name)
	if err != nil {
		return nil, err
	}
	if inst := src.explicit(a); inst != nil {
		return tc, tc.Install(cmd.Context(), inst)
	}
	if tc.Exists() {
		return tc, nil
	}
	inst, err := a.distInstaller()
	if err != nil {
		return nil, err
	}
	_, err = tc.InstallIfMissing(cmd.Context(), inst)
	return tc, err
}
