package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/networkdynamics/geoinf/internal/corpus"
)

var trainCmd = &cobra.Command{
	Use:   "train <method> <dataset_dir> <model_dir>",
	Short: "Train a method on a dataset and persist its model",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		methodName, datasetDir, modelDir := args[0], args[1], args[2]

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(modelDir); err == nil && !force {
			return eris.Errorf("train: model directory %s already exists (use --force to overwrite)", modelDir)
		}

		settings, err := loadSettingsFlag(cmd)
		if err != nil {
			return err
		}
		m, err := registry.Lookup(methodName)
		if err != nil {
			return err
		}
		c, err := corpus.Open(datasetDir, nil)
		if err != nil {
			return err
		}

		zap.L().Info("training",
			zap.String("method", methodName),
			zap.String("dataset", datasetDir),
			zap.String("model_dir", modelDir),
		)
		initial, final, err := m.TrainModel(settings, c, modelDir)
		if err != nil {
			return err
		}

		fmt.Printf("trained %s: %d users located (%d known before training)\n",
			methodName, len(final), len(initial))
		return nil
	},
}

func init() {
	trainCmd.Flags().String("settings", "", "method settings file (JSON or YAML)")
	trainCmd.Flags().Bool("force", false, "overwrite an existing model directory")
	rootCmd.AddCommand(trainCmd)
}
