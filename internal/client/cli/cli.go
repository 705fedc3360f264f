// Package cli is the yardsync terminal client: cobra commands over the client core.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/iudanet/yardsync/internal/client/auth"
	"github.com/iudanet/yardsync/internal/client/config"
	"github.com/iudanet/yardsync/internal/client/connectivity"
	"github.com/iudanet/yardsync/internal/client/iocli"
	"github.com/iudanet/yardsync/internal/client/notify"
	"github.com/iudanet/yardsync/internal/client/queue"
	"github.com/iudanet/yardsync/internal/client/session"
	syncsvc "github.com/iudanet/yardsync/internal/client/sync"
	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/forms"
	"github.com/iudanet/yardsync/internal/models"
)

//go:generate moq -out authenticator_mock.go . Authenticator

// Authenticator is the login stub used by the login, logout and status commands
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*auth.Session, error)
}

//go:generate moq -out prober_mock.go . Prober

// Prober checks whether the collector is reachable
type Prober interface {
	Probe(ctx context.Context) bool
	Run(ctx context.Context) <-chan bool
}

// BuildInfo is set through ldflags
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Deps are the wired client components
type Deps struct {
	Config    *config.Config
	Logger    *slog.Logger
	Clock     clock.Clock
	Notifier  notify.Sink
	Store     *queue.Store
	Auth      Authenticator
	Sync      syncsvc.Service
	Transport syncsvc.Transport
	Monitor   *connectivity.Monitor
	Prober    Prober
	Catalogue *forms.Catalogue
	Registry  *prometheus.Registry
	// Close releases the storage, may be nil
	Close func() error
}

// Cli holds the components shared by the commands
type Cli struct {
	io    iocli.IO
	build BuildInfo
	Deps
}

// NewApp creates a CLI that wires its components from configuration when a
// command runs.
func NewApp(io iocli.IO, build BuildInfo) *Cli {
	return &Cli{io: io, build: build}
}

// New creates a CLI over already wired components
func New(io iocli.IO, build BuildInfo, deps Deps) *Cli {
	c := &Cli{io: io, build: build, Deps: deps}
	c.defaults()
	return c
}

func (c *Cli) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Notifier == nil {
		c.Notifier = notify.Discard{}
	}
	if c.Catalogue == nil {
		c.Catalogue = forms.MustLoad()
	}
}

// Command builds the root command with every subcommand attached
func (c *Cli) Command() *cobra.Command {
	var configFile string
	v := config.New()

	root := &cobra.Command{
		Use:   "yardsync",
		Short: "yardsync - offline-first yard forms client",
		Long: `yardsync records material entries, exits, dispatches, receptions and
transfers. Submissions made without a connection are kept in a local queue
and sent to the collector when it becomes reachable again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c.Store != nil || cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return c.open(cmd.Context(), cfg)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is ~/.yardsync/config.yaml)")
	flags.String("server", "", "collector URL")
	flags.String("storage", "", "local storage backend: bolt, sqlite, redis or memory")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("no-color", false, "disable coloured output")
	_ = v.BindPFlag("server_url", flags.Lookup("server"))
	_ = v.BindPFlag("storage.backend", flags.Lookup("storage"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("no_color", flags.Lookup("no-color"))

	root.AddCommand(
		c.loginCommand(),
		c.logoutCommand(),
		c.submitCommand(),
		c.draftCommand(),
		c.queueCommand(),
		c.syncCommand(),
		c.statusCommand(),
		c.backupCommand(),
		c.watchCommand(),
		c.versionCommand(),
	)
	return root
}

// Execute runs the root command and returns the error to report
func (c *Cli) Execute(ctx context.Context, args []string) error {
	cmd := c.Command()
	cmd.SetArgs(args)
	cmd.SetOut(c.io)
	cmd.SetErr(c.io)
	return cmd.ExecuteContext(ctx)
}

func (c *Cli) close() error {
	if c.Close == nil {
		return nil
	}
	closeFn := c.Close
	c.Close = nil
	return closeFn()
}

// checkConnectivity probes the collector once and feeds the result to the monitor
func (c *Cli) checkConnectivity(ctx context.Context) bool {
	if c.Prober == nil || c.Monitor == nil {
		return c.Monitor == nil || c.Monitor.IsOnline()
	}
	online := c.Prober.Probe(ctx)
	c.Monitor.Set(online)
	return online
}

// newSession creates a form controller for kind
func (c *Cli) newSession(form *forms.Form, validate bool) *session.Controller {
	opts := session.Options{
		Kind:         form.Kind,
		Store:        c.Store,
		Transport:    c.Transport,
		Sync:         c.Sync,
		Connectivity: c.Monitor,
		Notifier:     c.Notifier,
		Clock:        c.Clock,
		Logger:       c.Logger,
		Defaults:     form.Defaults(),
	}
	if validate {
		opts.Validator = c.Catalogue
	}
	if c.Config != nil {
		opts.AutosaveIdle = c.Config.Draft.AutosaveIdle
		opts.SuccessMessageTTL = c.Config.SuccessMessageTTL
		opts.DeliveryTimeout = c.Config.Delivery.Timeout
	}
	return session.New(opts)
}

// applyFields parses name=value assignments and feeds them to the controller
func applyFields(ctrl *session.Controller, form *forms.Form, assignments []string) error {
	for _, a := range assignments {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid field %q, expected name=value", a)
		}
		v, err := form.Parse(name, value)
		if err != nil {
			return err
		}
		ctrl.Change(name, v)
	}
	return nil
}

func parseKind(s string) (models.FormKind, error) {
	kind := models.FormKind(strings.ToLower(s))
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", forms.ErrUnknownKind, s)
	}
	return kind, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func confirm(io iocli.IO, prompt string) (bool, error) {
	answer, err := io.ReadInput(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// isSkip reports sync outcomes that are already shown to the user
func isSkip(err error) bool {
	return errors.Is(err, syncsvc.ErrNothingToSync)
}
