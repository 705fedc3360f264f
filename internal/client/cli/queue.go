package cli

import (
	"context"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iudanet/yardsync/internal/client/notify"
	"github.com/iudanet/yardsync/internal/models"
)

func (c *Cli) queueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage submissions waiting to be sent",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List queued submissions, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subs, err := c.Store.ListSubmissions(cmd.Context())
			if err != nil {
				return err
			}
			return c.printQueue(subs)
		},
	}

	failed := &cobra.Command{
		Use:   "failed",
		Short: "List submissions whose last delivery failed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subs, err := c.Store.ListFailed(cmd.Context())
			if err != nil {
				return err
			}
			return c.printQueue(subs)
		},
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every queued submission and the draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runQueueClear(cmd.Context(), yes)
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	clearFailed := &cobra.Command{
		Use:   "clear-failed",
		Short: "Delete submissions whose last delivery failed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := c.Store.ClearFailed(cmd.Context())
			if err != nil {
				return err
			}
			c.io.Printf("✓ %d failed submission(s) deleted\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, failed, clearCmd, clearFailed)
	return cmd
}

func (c *Cli) printQueue(subs []*models.Submission) error {
	if len(subs) == 0 {
		c.io.Println("The queue is empty.")
		return nil
	}
	w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	if err := queueTmpl.Execute(w, subs); err != nil {
		return err
	}
	return w.Flush()
}

func (c *Cli) runQueueClear(ctx context.Context, yes bool) error {
	if !yes {
		ok, err := confirm(c.io, "Delete all data saved offline? This cannot be undone.")
		if err != nil {
			return err
		}
		if !ok {
			c.io.Println("Cancelled.")
			return nil
		}
	}
	if err := c.Store.ClearAll(ctx); err != nil {
		return err
	}
	c.Notifier.Notify(notify.Info, "Offline data deleted.")
	return nil
}
