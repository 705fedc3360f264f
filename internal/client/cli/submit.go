package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iudanet/yardsync/internal/client/session"
	"github.com/iudanet/yardsync/internal/forms"
)

type submitOptions struct {
	fields      []string
	evidence    []string
	interactive bool
	noValidate  bool
}

func (c *Cli) submitCommand() *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit <kind>",
		Short: "Fill in and submit a form (entry, exit, dispatch, reception, transfer)",
		Long: `Fill in and submit a form. A saved draft of the same kind is restored
first. When the collector is unreachable the submission is queued locally
and sent by the next sync.`,
		Example: `  yardsync submit entry -f remissionNumber=R-1001 -f provider=ACME -f netWeight=12.4
  yardsync submit exit --interactive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSubmit(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.fields, "field", "f", nil, "field value as name=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.evidence, "evidence", "e", nil, "evidence file to reference (repeatable)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "prompt for every field")
	cmd.Flags().BoolVar(&opts.noValidate, "no-validate", false, "skip local validation")
	return cmd
}

func (c *Cli) runSubmit(ctx context.Context, kindArg string, opts submitOptions) error {
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
	}
	form, err := c.Catalogue.Get(kind)
	if err != nil {
		return err
	}

	c.checkConnectivity(ctx)

	ctrl := c.newSession(form, !opts.noValidate)
	defer ctrl.Close()

	if err := c.fillForm(ctx, ctrl, form, opts); err != nil {
		return err
	}

	outcome, err := ctrl.Submit(ctx)
	if err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			c.io.Println("✖ The form is not valid:")
			for _, p := range verr.Problems {
				c.io.Printf("  - %s\n", p)
			}
		}
		// Ввод не теряется: сохраняем его как черновик
		if ctrl.BeforeUnload(ctx) {
			c.io.Println("Your input was saved as a draft.")
		}
		return err
	}

	st := ctrl.State()
	switch outcome {
	case session.Delivered:
		c.io.Printf("✓ %s\n", st.SuccessMessage)
	case session.Queued:
		c.io.Printf("! %s\n", st.SuccessMessage)
		c.io.Printf("Pending submissions: %d\n", st.PendingSubmissions)
	case session.QueuedAfterFailure:
		c.io.Printf("✖ Delivery failed: %s\n", st.SubmitError)
		c.io.Println("The submission was saved locally and will be retried on the next sync.")
		c.io.Printf("Pending submissions: %d\n", st.PendingSubmissions)
	}
	return nil
}

// fillForm mounts the controller (restoring a draft) and applies flags, evidence and prompts
func (c *Cli) fillForm(ctx context.Context, ctrl *session.Controller, form *forms.Form, opts submitOptions) error {
	if err := ctrl.Mount(ctx); err != nil {
		return err
	}
	if ctrl.State().HasUnsavedChanges {
		c.io.Println("Restored the saved draft of this form.")
	}

	if err := applyFields(ctrl, form, opts.fields); err != nil {
		return err
	}
	if err := addEvidence(ctrl, opts.evidence); err != nil {
		return err
	}

	if opts.interactive {
		if err := c.prompt(ctrl, form); err != nil {
			return err
		}
	}
	return nil
}

// prompt asks for every field; an empty answer keeps the current value
func (c *Cli) prompt(ctrl *session.Controller, form *forms.Form) error {
	current := ctrl.Fields()
	for _, f := range form.Fields {
		if f.Type == forms.FieldList {
			continue
		}
		label := f.Name
		if f.Required {
			label += "*"
		}
		answer, err := c.io.ReadInput(fmt.Sprintf("%s [%v]: ", label, current[f.Name]))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		if answer == "" {
			continue
		}
		v, err := form.Parse(f.Name, answer)
		if err != nil {
			return err
		}
		ctrl.Change(f.Name, v)
	}
	return nil
}

// addEvidence appends file references to the evidence list
func addEvidence(ctrl *session.Controller, files []string) error {
	if len(files) == 0 {
		return nil
	}

	var list []any
	if existing, ok := ctrl.Fields()["evidence"].([]any); ok {
		list = append(list, existing...)
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("invalid evidence path %q: %w", f, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("evidence file %q: %w", f, err)
		}
		list = append(list, abs)
	}
	ctrl.Change("evidence", list)
	return nil
}
