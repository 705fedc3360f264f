// Package cli is the yardsync-collector command line: the server itself and
// operator administration over its database.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/yardsync/internal/client/iocli"
	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/server"
	"github.com/iudanet/yardsync/internal/server/config"
	"github.com/iudanet/yardsync/internal/server/storage/sqlite"
)

// BuildInfo is set through ldflags
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Store is the collector database as used by the commands
type Store interface {
	server.Store
	Close() error
}

// Cli holds what the commands share
type Cli struct {
	io         iocli.IO
	logOut     io.Writer
	clock      clock.Clock
	openStore  func(ctx context.Context, path string) (Store, error)
	build      BuildInfo
	bcryptCost int
}

// New creates the collector CLI
func New(io iocli.IO, build BuildInfo) *Cli {
	return &Cli{
		io:         io,
		build:      build,
		logOut:     os.Stderr,
		clock:      clock.New(),
		bcryptCost: bcrypt.DefaultCost,
		openStore: func(ctx context.Context, path string) (Store, error) {
			store, err := sqlite.New(ctx, path)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	}
}

type globalFlags struct {
	configFile string
	dbPath     string
}

// Command builds the root command
func (c *Cli) Command() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "yardsync-collector",
		Short: "yardsync collector - receives yard forms from operators",
		Long: `yardsync-collector stores the forms submitted by yardsync clients.
A submission replayed with the same id is accepted once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (YAML)")
	pf.StringVar(&flags.dbPath, "db", "", "database path (overrides config)")

	root.AddCommand(
		c.serveCommand(&flags),
		c.userCommand(&flags),
		c.submissionsCommand(&flags),
		c.versionCommand(),
	)
	return root
}

// Execute runs the root command
func (c *Cli) Execute(ctx context.Context, args []string) error {
	cmd := c.Command()
	cmd.SetArgs(args)
	cmd.SetOut(c.io)
	cmd.SetErr(c.io)
	return cmd.ExecuteContext(ctx)
}

func (c *Cli) newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(c.logOut, &slog.HandlerOptions{Level: level}))
}

// withStore opens the database named by the flags and config for fn
func (c *Cli) withStore(ctx context.Context, flags *globalFlags, fn func(Store) error) error {
	cfg, err := config.Read(flags.configFile)
	if err != nil {
		return err
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}

	store, err := c.openStore(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()
	return fn(store)
}

func (c *Cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			c.io.Printf("yardsync collector\nVersion:    %s\nBuild Date: %s\nGit Commit: %s\n",
				c.build.Version, c.build.BuildDate, c.build.GitCommit)
			return nil
		},
	}
}
