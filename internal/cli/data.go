package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpgradeDataCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade-data",
		Short: "Upgrade the multirust metadata to the current format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.cfg.UpgradeData(cmd.Context())
			return err
		},
	}
}

func newDeleteDataCmd(a *app) *cobra.Command {
	var noPrompt bool
	cmd := &cobra.Command{
		Use:   "delete-data",
		Short: "Delete all toolchains, overrides and settings, keeping multirust installed",
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
			return a.cfg.DeleteData()
		},
	}
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Do not ask for confirmation")
	return cmd
}
