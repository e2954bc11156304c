package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"multirust/internal/errs"
)

func newCtlCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Machine-readable queries for tools built on multirust",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "home",
		Short: "Print the multirust home directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.layout.Home)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "default-toolchain",
		Short: "Print the default toolchain name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tc, err := a.cfg.FindDefault()
			if err != nil {
				return err
			}
			if tc == nil {
				return errs.ErrNoDefaultToolchain
			}
			fmt.Fprintln(cmd.OutOrStdout(), tc.Name())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "override-toolchain",
		Short: "Print the toolchain selected for the current directory",
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
			fmt.Fprintln(cmd.OutOrStdout(), res.Toolchain.Name())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "toolchain-sysroot <toolchain>",
		Short: "Print the install prefix of a toolchain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := a.cfg.GetToolchain(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tc.Prefix())
			return nil
		},
	})
	return cmd
}
