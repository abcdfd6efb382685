package main

import (
	"fmt"
	"net/http"
	"net/url"
	"text/tabwriter"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newContradictionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contradictions",
		Aliases: []string{"contra"},
		Short:   "List and resolve contradictions",
	}

	var (
		status string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List contradictions by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("status", status)
			q.Set("limit", fmt.Sprint(limit))

			var cs []domain.Contradiction
			raw, err := newClient().do(cmd.Context(), http.MethodGet, "/v1/contradictions?"+q.Encode(), nil, &cs)
			if err != nil {
				return err
			}
			if outputJSON {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			printContradictions(cmd, cs)
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "open", "open, needs_review or resolved")
	list.Flags().IntVar(&limit, "limit", 50, "maximum number of contradictions")

	var (
		winner   string
		strategy string
		reason   string
	)
	resolve := &cobra.Command{
		Use:   "resolve <contradiction-id>",
		Short: "Resolve a contradiction in favour of one memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid contradiction id %q", args[0])
			}
			winnerID, err := uuid.Parse(winner)
			if err != nil {
				return fmt.Errorf("invalid --winner %q", winner)
			}

			body := map[string]string{
				"winner_id":   winnerID.String(),
				"strategy":    strategy,
				"reason":      reason,
				"resolved_by": operator,
			}
			var c domain.Contradiction
			raw, err := newClient().do(cmd.Context(), http.MethodPost, "/v1/contradictions/"+id.String()+"/resolve", body, &c)
			if err != nil {
				return err
			}
			if outputJSON {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			printContradictions(cmd, []domain.Contradiction{c})
			return nil
		},
	}
	resolve.Flags().StringVar(&winner, "winner", "", "id of the memory that wins")
	resolve.Flags().StringVar(&strategy, "strategy", string(domain.StrategyManual), "resolution strategy to record")
	resolve.Flags().StringVar(&reason, "reason", "", "why the winner is correct")
	_ = resolve.MarkFlagRequired("winner")

	cmd.AddCommand(list, resolve)
	return cmd
}

func printContradictions(cmd *cobra.Command, cs []domain.Contradiction) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tMEMORY A\tMEMORY B\tATTEMPTS\tWINNER")
	for _, c := range cs {
		winner := "-"
		if c.Resolution != nil {
			winner = c.Resolution.WinnerID.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			c.ID, c.Type, c.Status, c.MemoryA, c.MemoryB, c.Attempts, winner)
	}
	_ = tw.Flush()
}
