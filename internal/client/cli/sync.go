package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	syncsvc "github.com/iudanet/yardsync/internal/client/sync"
)

func (c *Cli) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send queued submissions to the collector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runSync(cmd.Context())
		},
	}
}

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	c.checkConnectivity(ctx)

	// Итог цикла уже показан через уведомления
	result, err := c.Sync.Sync(ctx, syncsvc.Manual)
	if err != nil {
		if isSkip(err) {
			return nil
		}
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	c.io.Printf("Delivered: %d\n", result.SuccessCount)
	c.io.Printf("Failed:    %d\n", result.FailureCount)
	if result.FailureCount > 0 {
		c.io.Println("Run 'yardsync queue failed' to see the errors.")
	}
	return nil
}
