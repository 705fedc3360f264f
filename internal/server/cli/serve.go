package cli

import (
	"github.com/spf13/cobra"

	"github.com/iudanet/yardsync/internal/server"
	"github.com/iudanet/yardsync/internal/server/config"
)

func (c *Cli) serveCommand(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collector HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(flags.configFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if flags.dbPath != "" {
				cfg.DBPath = flags.dbPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := c.newLogger(cfg.SlogLevel())
			ctx := cmd.Context()

			store, err := c.openStore(ctx, cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.Error("failed to close database", "error", err)
				}
			}()

			srv, err := server.New(cfg, store, logger, c.build.Version, c.clock)
			if err != nil {
				return err
			}
			defer srv.Close()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
