package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/yardsync/internal/client/auth"
	"github.com/iudanet/yardsync/internal/models"
)

func (c *Cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, session and local queue status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runStatus(cmd.Context())
		},
	}
}

func (c *Cli) runStatus(ctx context.Context) error {
	session, err := c.Auth.Current(ctx)
	if err != nil && !errors.Is(err, auth.ErrNotLoggedIn) {
		return err
	}

	last, err := c.Store.LastSync(ctx)
	if err != nil {
		c.Logger.Warn("failed to read last sync time", "error", err)
	}

	serverURL := ""
	if c.Config != nil {
		serverURL = c.Config.ServerURL
	}

	data := struct {
		Session   *auth.Session
		LastSync  time.Time
		ServerURL string
		Stats     models.Stats
		Online    bool
		Expired   bool
		Available bool
	}{
		Session:   session,
		Stats:     c.Store.Stats(ctx),
		LastSync:  last,
		ServerURL: serverURL,
		Online:    c.checkConnectivity(ctx),
		Expired:   session != nil && session.Expired(c.Clock.Now()),
		Available: c.Store.IsAvailable(ctx),
	}
	return statusTmpl.Execute(c.io, data)
}
