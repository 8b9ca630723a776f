package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/networkdynamics/geoinf/internal/corpus"
	"github.com/networkdynamics/geoinf/internal/method"
)

var inferByPostCmd = &cobra.Command{
	Use:   "infer_by_post <method> <model_dir> <dataset_dir> <output>",
	Short: "Infer a location for each post independently",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfer(cmd, args, false)
	},
}

var inferByUserCmd = &cobra.Command{
	Use:   "infer_by_user <method> <model_dir> <dataset_dir> <output>",
	Short: "Infer locations for each user's posts together",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfer(cmd, args, true)
	},
}

// runInfer loads a trained model and streams predictions to the output file:
// a JSON header line describing the run, then one "post_id lat lon" row per
// placed post. Posts the model cannot place produce no row.
func runInfer(cmd *cobra.Command, args []string, byUser bool) error {
	methodName, modelDir, datasetDir, outPath := args[0], args[1], args[2], args[3]

	settings, err := loadSettingsFlag(cmd)
	if err != nil {
		return err
	}
	m, err := registry.Lookup(methodName)
	if err != nil {
		return err
	}
	model, err := m.LoadModel(modelDir, settings)
	if err != nil {
		return err
	}
	c, err := corpus.Open(datasetDir, nil)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return eris.Wrapf(err, "infer: create output %s", outPath)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	header, err := json.Marshal(map[string]string{
		"method":    methodName,
		"model_dir": modelDir,
		"dataset":   datasetDir,
	})
	if err != nil {
		return eris.Wrap(err, "infer: encode header")
	}
	if _, err := w.Write(append(header, '\n')); err != nil {
		return eris.Wrap(err, "infer: write header")
	}

	it, err := c.Users()
	if err != nil {
		return err
	}
	defer it.Close()

	log := zap.L().Named("infer")
	processed, placed, lastLogged := 0, 0, 0
	for it.Next() {
		user := it.User()
		n, err := inferUser(w, model, user, byUser)
		if err != nil {
			return err
		}
		placed += n
		processed += len(user.Posts)
		if processed-lastLogged >= 10000 {
			log.Info("inference progress",
				zap.Int("posts_processed", processed),
				zap.Int("posts_placed", placed),
			)
			lastLogged = processed
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "infer: flush output")
	}

	log.Info("inference complete",
		zap.Int("posts_processed", processed),
		zap.Int("posts_placed", placed),
	)
	return nil
}

func inferUser(w *bufio.Writer, model method.Model, user *corpus.User, byUser bool) (int, error) {
	placed := 0
	if byUser {
		preds, err := model.InferPostsByUser(user.UserID, user.Posts)
		if err != nil {
			return 0, err
		}
		if len(preds) != len(user.Posts) {
			return 0, eris.Errorf("infer: method returned %d predictions for %d posts of user %s",
				len(preds), len(user.Posts), user.UserID)
		}
		for i, p := range preds {
			if p == nil {
				continue
			}
			if err := writePrediction(w, user.Posts[i].ID, p.Lat, p.Lon); err != nil {
				return 0, err
			}
			placed++
		}
		return placed, nil
	}

	for _, post := range user.Posts {
		p, err := model.InferPostLocation(post)
		if err != nil {
			return 0, err
		}
		if p == nil {
			continue
		}
		if err := writePrediction(w, post.ID, p.Lat, p.Lon); err != nil {
			return 0, err
		}
		placed++
	}
	return placed, nil
}

func writePrediction(w *bufio.Writer, postID string, lat, lon float64) error {
	_, err := fmt.Fprintf(w, "%s\t%f\t%f\n", postID, lat, lon)
	return eris.Wrap(err, "infer: write prediction")
}

func init() {
	inferByPostCmd.Flags().String("settings", "", "method settings file (JSON or YAML)")
	inferByUserCmd.Flags().String("settings", "", "method settings file (JSON or YAML)")
	rootCmd.AddCommand(inferByPostCmd)
	rootCmd.AddCommand(inferByUserCmd)
}
