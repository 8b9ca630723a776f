package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/networkdynamics/geoinf/internal/corpus"
	"github.com/networkdynamics/geoinf/internal/folds"
)

var createFoldsCmd = &cobra.Command{
	Use:   "create_folds <dataset_dir> <fold_dir>",
	Short: "Partition dataset users into cross-validation folds",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		datasetDir, foldDir := args[0], args[1]

		perCategory, _ := cmd.Flags().GetInt("folds")
		seed, _ := cmd.Flags().GetInt64("seed")
		sampleCap, _ := cmd.Flags().GetInt("sample-cap")
		stratify, _ := cmd.Flags().GetString("stratify")
		groundTruth, _ := cmd.Flags().GetString("ground-truth")
		force, _ := cmd.Flags().GetBool("force")

		if perCategory <= 0 {
			perCategory = cfg.Folds.PerCategory
		}
		if seed == 0 {
			seed = cfg.Folds.Seed
		}
		if sampleCap < 0 {
			sampleCap = cfg.Folds.SampleCap
		}

		users, err := datasetUserIDs(datasetDir)
		if err != nil {
			return err
		}

		var strata map[string]folds.Category
		switch stratify {
		case "":
		case "gender", "urban":
			if groundTruth == "" {
				return eris.Errorf("create_folds: --stratify %s requires --ground-truth", stratify)
			}
			s, err := folds.LoadStrata(groundTruth)
			if err != nil {
				return err
			}
			if stratify == "gender" {
				strata = s.Gender
			} else {
				strata = s.Urban
			}
		default:
			return eris.Errorf("create_folds: unknown stratification attribute %q (want gender or urban)", stratify)
		}

		plan, err := folds.Generate(users, strata, perCategory, sampleCap, seed)
		if err != nil {
			return err
		}
		if err := folds.WritePlan(plan, foldDir, force); err != nil {
			return err
		}

		fmt.Printf("wrote %d folds (%s) for %d users to %s\n",
			len(plan.Folds), plan.Attribute, len(users), foldDir)
		return nil
	},
}

// datasetUserIDs streams the dataset once and collects every user id.
func datasetUserIDs(datasetDir string) ([]string, error) {
	c, err := corpus.Open(datasetDir, nil)
	if err != nil {
		return nil, err
	}
	it, err := c.Users()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var ids []string
	for it.Next() {
		ids = append(ids, it.User().UserID)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func init() {
	createFoldsCmd.Flags().Int("folds", 0, "folds per category (0 = config default)")
	createFoldsCmd.Flags().Int64("seed", 0, "shuffle seed (0 = config default)")
	createFoldsCmd.Flags().Int("sample-cap", -1, "cap users per category before splitting (-1 = config default, 0 = no cap)")
	createFoldsCmd.Flags().String("stratify", "", "stratification attribute: gender or urban")
	createFoldsCmd.Flags().String("ground-truth", "", "ground-truth TSV with stratification labels")
	createFoldsCmd.Flags().Bool("force", false, "overwrite an existing fold directory")
	rootCmd.AddCommand(createFoldsCmd)
}
