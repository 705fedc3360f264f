package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (c *Cli) draftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Manage the saved draft",
	}

	var opts submitOptions
	save := &cobra.Command{
		Use:   "save <kind>",
		Short: "Save field values as the draft without submitting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDraftSave(cmd.Context(), args[0], opts)
		},
	}
	save.Flags().StringArrayVarP(&opts.fields, "field", "f", nil, "field value as name=value (repeatable)")
	save.Flags().StringArrayVarP(&opts.evidence, "evidence", "e", nil, "evidence file to reference (repeatable)")
	save.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "prompt for every field")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runDraftShow(cmd.Context())
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.Store.ClearDraft(cmd.Context()); err != nil {
				return err
			}
			c.io.Println("✓ Draft deleted")
			return nil
		},
	}

	cmd.AddCommand(save, show, clearCmd)
	return cmd
}

func (c *Cli) runDraftSave(ctx context.Context, kindArg string, opts submitOptions) error {
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
	}
	form, err := c.Catalogue.Get(kind)
	if err != nil {
		return err
	}

	ctrl := c.newSession(form, false)
	defer ctrl.Close()

	if err := c.fillForm(ctx, ctrl, form, opts); err != nil {
		return err
	}
	if err := ctrl.SaveAsDraft(ctx); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	c.io.Printf("✓ Draft of the %s form saved\n", kind)
	return nil
}

func (c *Cli) runDraftShow(ctx context.Context) error {
	draft, err := c.Store.GetDraft(ctx)
	if err != nil {
		return err
	}
	if draft == nil {
		c.io.Println("No draft saved.")
		return nil
	}
	return draftTmpl.Execute(c.io, draft)
}
