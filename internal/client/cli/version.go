package cli

import "github.com/spf13/cobra"

func (c *Cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return versionTmpl.Execute(c.io, c.build)
		},
	}
}
