package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iudanet/yardsync/internal/models"
)

func (c *Cli) submissionsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "submissions",
		Aliases: []string{"subs"},
		Short:   "Inspect received forms",
	}
	cmd.AddCommand(c.submissionsListCommand(flags), c.submissionsShowCommand(flags), c.submissionsStatsCommand(flags))
	return cmd
}

func (c *Cli) submissionsListCommand(flags *globalFlags) *cobra.Command {
	var (
		kind  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List received forms, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k := models.FormKind(kind)
			if k != "" && !k.Valid() {
				return fmt.Errorf("unknown form kind %q", kind)
			}
			return c.withStore(cmd.Context(), flags, func(store Store) error {
				subs, err := store.ListSubmissions(cmd.Context(), k, limit)
				if err != nil {
					return err
				}
				if len(subs) == 0 {
					c.io.Println("No submissions.")
					return nil
				}

				w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tKIND\tRECEIVED\tUSER")
				for _, s := range subs {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Kind,
						s.ReceivedAt.Format("2006-01-02 15:04:05"), s.UserID)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only this form kind")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of rows, 0 for all")
	return cmd
}

func (c *Cli) submissionsShowCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one received form as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), flags, func(store Store) error {
				sub, err := store.GetSubmission(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(sub, "", "  ")
				if err != nil {
					return err
				}
				c.io.Println(string(data))
				return nil
			})
		},
	}
}

func (c *Cli) submissionsStatsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count received forms per kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd.Context(), flags, func(store Store) error {
				counts, err := store.CountByKind(cmd.Context())
				if err != nil {
					return err
				}
				total := 0
				for _, k := range models.AllKinds {
					c.io.Printf("%-10s %d\n", k, counts[k])
					total += counts[k]
				}
				c.io.Printf("%-10s %d\n", "total", total)
				return nil
			})
		},
	}
}
