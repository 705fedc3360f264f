package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (c *Cli) backupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import the offline queue and draft",
	}

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the queue and draft as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runExport(cmd.Context(), output)
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the queue (and the draft, if present) with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(export, imp)
	return cmd
}

func (c *Cli) runExport(ctx context.Context, output string) error {
	data, err := c.Store.Export(ctx)
	if err != nil {
		return err
	}
	if output == "" {
		_, err := c.io.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	c.io.Printf("✓ Backup written to %s\n", output)
	return nil
}

func (c *Cli) runImport(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if err := c.Store.Import(ctx, data); err != nil {
		return err
	}
	stats := c.Store.Stats(ctx)
	c.io.Printf("✓ Backup imported: %d pending, %d failed\n", stats.PendingCount, stats.FailedCount)
	return nil
}
