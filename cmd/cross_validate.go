package main

import (
	"github.com/spf13/cobra"

	"github.com/networkdynamics/geoinf/internal/eval"
)

var crossValidateCmd = &cobra.Command{
	Use:   "cross_validate <method> <dataset_dir> <fold_dir> <results_dir>",
	Short: "Benchmark a method with k-fold cross-validation",
	Long:  "Trains the method once per fold on a view of the dataset with the fold's users redacted, scores newly resolved users against gold locations, and writes one results file per fold.",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		gold, _ := cmd.Flags().GetString("gold")
		settingsPath, _ := cmd.Flags().GetString("settings")
		fold, _ := cmd.Flags().GetString("fold")
		parallel, _ := cmd.Flags().GetInt("parallel")
		force, _ := cmd.Flags().GetBool("force")
		noLedger, _ := cmd.Flags().GetBool("no-ledger")

		if parallel <= 0 {
			parallel = cfg.Eval.Parallel
		}

		ledger, err := openLedger(ctx)
		if err != nil {
			return err
		}
		if noLedger {
			ledger = nil
		}
		if ledger != nil {
			defer ledger.Close()
		}

		r := eval.New(registry, ledger, eval.Options{
			Method:       args[0],
			DatasetDir:   args[1],
			FoldDir:      args[2],
			ResultsDir:   args[3],
			GoldPath:     gold,
			SettingsPath: settingsPath,
			Fold:         fold,
			Parallel:     parallel,
			Force:        force,
		})
		return r.Run(ctx)
	},
}

func init() {
	crossValidateCmd.Flags().String("gold", "", "gold locations file (TSV, optionally gzip)")
	crossValidateCmd.Flags().String("settings", "", "method settings file (JSON or YAML)")
	crossValidateCmd.Flags().String("fold", "", "run only the named fold")
	crossValidateCmd.Flags().Int("parallel", 0, "folds trained concurrently (0 = config default)")
	crossValidateCmd.Flags().Bool("force", false, "allow writing into an existing results directory")
	crossValidateCmd.Flags().Bool("no-ledger", false, "skip recording this run in the ledger")
	_ = crossValidateCmd.MarkFlagRequired("gold")
	rootCmd.AddCommand(crossValidateCmd)
}
