package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/networkdynamics/geoinf/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect cross-validation run history",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded cross-validation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ledger, err := openLedger(ctx)
		if err != nil {
			return err
		}
		if ledger == nil {
			return eris.New("runs: ledger disabled by configuration")
		}
		defer ledger.Close() //nolint:errcheck

		methodName, _ := cmd.Flags().GetString("method")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := ledger.ListRuns(ctx, store.RunFilter{
			Method: methodName,
			Status: store.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}
		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's per-fold results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ledger, err := openLedger(ctx)
		if err != nil {
			return err
		}
		if ledger == nil {
			return eris.New("runs: ledger disabled by configuration")
		}
		defer ledger.Close() //nolint:errcheck

		results, err := ledger.FoldResults(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No fold results for this run.")
			return nil
		}
		formatFoldResults(os.Stdout, results)
		return nil
	},
}

func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tMETHOD\tSTATUS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t--------")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Method,
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String(),
		)
	}
	_ = w.Flush()
}

func formatFoldResults(out io.Writer, results []store.FoldResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FOLD\tTESTED\tUNSCOREABLE\tMEAN_KM\tMEDIAN_KM")
	for _, fr := range results {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%.1f\n",
			fr.FoldName, fr.Tested, fr.Unscoreable, fr.MeanKm, fr.MedianKm)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	runsListCmd.Flags().String("method", "", "filter by method name")
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
