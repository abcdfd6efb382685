package main

import (
	"fmt"
	"net/http"
	"strconv"
	"text/tabwriter"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/spf13/cobra"
)

func newWeightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Review factor weight versions",
		Long: `Weight versions are proposed by the learning loop or by operators and only
take effect once activated. Activating a version rescores every memory.`,
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List weight versions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var versions []domain.WeightVersion
			raw, err := newClient().do(cmd.Context(), http.MethodGet, fmt.Sprintf("/v1/weights?limit=%d", limit), nil, &versions)
			if err != nil {
				return err
			}
			if outputJSON {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			printWeightVersions(cmd, versions)
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of versions")

	show := &cobra.Command{
		Use:   "show <version|active>",
		Short: "Show one weight version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/weights/active"
			if args[0] != "active" {
				v, err := parseVersion(args[0])
				if err != nil {
					return err
				}
				path = fmt.Sprintf("/v1/weights/%d", v)
			}
			return showWeightVersion(cmd, http.MethodGet, path, nil)
		},
	}

	activate := &cobra.Command{
		Use:   "activate <version>",
		Short: "Activate a weight version and rescore all memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVersion(args[0])
			if err != nil {
				return err
			}
			return showWeightVersion(cmd, http.MethodPost, fmt.Sprintf("/v1/weights/%d/activate", v), map[string]string{"by": operator})
		},
	}

	reject := &cobra.Command{
		Use:   "reject <version>",
		Short: "Reject a proposed weight version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVersion(args[0])
			if err != nil {
				return err
			}
			return showWeightVersion(cmd, http.MethodPost, fmt.Sprintf("/v1/weights/%d/reject", v), map[string]string{"by": operator})
		},
	}

	cmd.AddCommand(list, show, activate, reject)
	return cmd
}

func parseVersion(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid weight version %q", s)
	}
	return v, nil
}

func showWeightVersion(cmd *cobra.Command, method, path string, body any) error {
	var wv domain.WeightVersion
	raw, err := newClient().do(cmd.Context(), method, path, body, &wv)
	if err != nil {
		return err
	}
	if outputJSON {
		return printRaw(cmd.OutOrStdout(), raw)
	}
	printWeightVersions(cmd, []domain.WeightVersion{wv})
	return nil
}

func printWeightVersions(cmd *cobra.Command, versions []domain.WeightVersion) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATUS\tSOURCE\tSAMPLES\tCAL.ERR\tPROJ.ERR\tWEIGHTS")
	for _, wv := range versions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			wv.Version, wv.Status, wv.Source, wv.SampleSize,
			optFloat(wv.CalibrationError), optFloat(wv.ProjectedError), formatWeights(wv.Weights))
	}
	_ = tw.Flush()
}

func formatWeights(w domain.WeightSet) string {
	return fmt.Sprintf("fresh=%.2f src=%.2f ver=%.2f cons=%.2f contra=%.2f succ=%.2f ctx=%.2f",
		w.Freshness, w.SourceCredibility, w.Verification, w.Consensus,
		w.Contradiction, w.SuccessRate, w.ContextRelevance)
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}
