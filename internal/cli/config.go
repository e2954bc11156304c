package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration in YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.config.Marshal()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, string(data))
			if len(data) == 0 || data[len(data)-1] != '\n' {
				fmt.Fprintln(out)
			}
			for _, r := range a.config.Validate() {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.Level, r.Message)
			}
			return nil
		},
	}
}
