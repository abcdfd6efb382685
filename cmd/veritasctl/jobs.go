package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type consensusRun struct {
	Categories int    `json:"categories"`
	Clusters   int    `json:"clusters"`
	Memories   int    `json:"memories"`
	Duration   string `json:"duration"`
}

func newJobsCmds() []*cobra.Command {
	consensus := &cobra.Command{
		Use:   "consensus",
		Short: "Consensus clustering",
	}
	consensus.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Rebuild consensus clusters now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var run consensusRun
			raw, err := newClient().do(cmd.Context(), http.MethodPost, "/v1/consensus/run", nil, &run)
			if err != nil {
				return err
			}
			if outputJSON {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d clusters over %d memories in %d categories (%s)\n",
				run.Clusters, run.Memories, run.Categories, run.Duration)
			return nil
		},
	})

	learning := &cobra.Command{
		Use:   "learning",
		Short: "Calibration and weight learning",
	}
	learning.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run one learning pass; a proposal still needs activation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var run domain.LearningRun
			raw, err := newClient().do(cmd.Context(), http.MethodPost, "/v1/learning/run", nil, &run)
			if err != nil {
				return err
			}
			if outputJSON {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			out := cmd.OutOrStdout()
			if run.Skipped != "" {
				fmt.Fprintf(out, "skipped: %s\n", run.Skipped)
				return nil
			}
			if run.Calibration != nil {
				fmt.Fprintf(out, "samples=%d brier=%.4f mae=%.4f (active version %d)\n",
					run.Calibration.SampleSize, run.Calibration.BrierScore, run.Calibration.MeanAbsoluteErr, run.ActiveVersion)
			}
			if run.Proposal != nil {
				fmt.Fprintf(out, "proposed version %d: %s\n", run.Proposal.Version, formatWeights(run.Proposal.Weights))
			} else {
				fmt.Fprintln(out, "no proposal")
			}
			return nil
		},
	})

	return []*cobra.Command{consensus, learning}
}

func newConfidenceCmd() *cobra.Command {
	var (
		project string
		team    string
		systems []string
		task    string
	)
	cmd := &cobra.Command{
		Use:   "confidence <memory-id>",
		Short: "Show the confidence breakdown of a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid memory id %q", args[0])
			}
			q := url.Values{}
			if project != "" {
				q.Set("project", project)
			}
			if team != "" {
				q.Set("team", team)
			}
			if len(systems) > 0 {
				q.Set("systems", strings.Join(systems, ","))
			}
			if task != "" {
				q.Set("task", task)
			}
			path := "/v1/memories/" + id.String() + "/confidence"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var sc domain.ConfidenceScore
			raw, err := newClient().do(cmd.Context(), http.MethodGet, path, nil, &sc)
			if err != nil {
				return err
			}
			if outputJSON {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%.3f %s (weights v%d)\n%s\n", sc.FinalScore, sc.Level, sc.WeightsVersion, sc.Recommendation)
			f := sc.Factors
			for i, v := range f.Vector() {
				fmt.Fprintf(out, "  %-20s %.3f\n", domain.AllFactors()[i], v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "caller project")
	cmd.Flags().StringVar(&team, "team", "", "caller team")
	cmd.Flags().StringSliceVar(&systems, "systems", nil, "systems the caller works on")
	cmd.Flags().StringVar(&task, "task", "", "description of the task at hand")
	return cmd
}
