// Package eval orchestrates cross-validation of geoinference methods: for
// each fold it trains on a redacted view of the corpus, scores the newly
// resolved users against gold locations, and writes a per-fold results file.
package eval

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/networkdynamics/geoinf/internal/corpus"
	"github.com/networkdynamics/geoinf/internal/folds"
	"github.com/networkdynamics/geoinf/internal/method"
	"github.com/networkdynamics/geoinf/internal/store"
)

// Options configures one cross-validation run.
type Options struct {
	Method       string
	SettingsPath string
	DatasetDir   string
	FoldDir      string
	ResultsDir   string
	GoldPath     string

	// Fold restricts the run to a single named fold. Empty means all folds.
	Fold string

	// Parallel bounds the number of folds trained concurrently. Values
	// below 1 mean sequential.
	Parallel int

	// Force allows writing into a results directory that already exists.
	Force bool
}

// Runner drives one cross-validation run to completion.
type Runner struct {
	registry *method.Registry
	ledger   store.Store
	opts     Options
	log      *zap.Logger
}

// New builds a Runner. ledger may be nil, in which case the run is not
// recorded.
func New(registry *method.Registry, ledger store.Store, opts Options) *Runner {
	return &Runner{
		registry: registry,
		ledger:   ledger,
		opts:     opts,
		log:      zap.L().Named("eval"),
	}
}

// Run executes the cross-validation loop. Configuration problems (unknown
// method, unreadable plan or gold file, pre-existing results directory) fail
// the whole run before any fold starts; a failure inside one fold aborts
// that fold and the run continues.
func (r *Runner) Run(ctx context.Context) error {
	// Resolve the method up front so an unknown name fails fast, then throw
	// the instance away. Each fold gets its own instance.
	if _, err := r.registry.Lookup(r.opts.Method); err != nil {
		return err
	}

	settings := method.Settings{}
	if r.opts.SettingsPath != "" {
		var err error
		settings, err = method.LoadSettings(r.opts.SettingsPath)
		if err != nil {
			return err
		}
	}

	plan, err := folds.LoadPlan(r.opts.FoldDir)
	if err != nil {
		return err
	}
	selected := plan.Folds
	if r.opts.Fold != "" {
		fold := plan.Fold(r.opts.Fold)
		if fold == nil {
			return eris.Errorf("eval: fold %q not in plan %s", r.opts.Fold, r.opts.FoldDir)
		}
		selected = []folds.Fold{*fold}
	}

	gold, err := LoadGold(r.opts.GoldPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(r.opts.ResultsDir); err == nil && !r.opts.Force {
		return eris.Errorf("eval: results directory %s already exists (use --force to overwrite)", r.opts.ResultsDir)
	}
	if err := os.MkdirAll(r.opts.ResultsDir, 0o755); err != nil {
		return eris.Wrapf(err, "eval: create results directory %s", r.opts.ResultsDir)
	}

	// Open once to validate the dataset before committing to a run record.
	if _, err := corpus.Open(r.opts.DatasetDir, nil); err != nil {
		return err
	}

	var run *store.Run
	if r.ledger != nil {
		run, err = r.ledger.CreateRun(ctx, r.opts.Method, r.opts.DatasetDir, r.opts.FoldDir)
		if err != nil {
			return err
		}
	}

	r.log.Info("cross-validation starting",
		zap.String("method", r.opts.Method),
		zap.Int("folds", len(selected)),
		zap.Int("parallel", max(1, r.opts.Parallel)),
	)

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.opts.Parallel))
	for i := range selected {
		fold := &selected[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.runFold(gctx, settings, fold, gold, run); err != nil {
				failed.Add(1)
				r.log.Error("fold aborted",
					zap.String("fold", fold.Name), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.finishRun(ctx, run, store.RunStatusFailed)
		return eris.Wrap(err, "eval: run interrupted")
	}

	status := store.RunStatusComplete
	if failed.Load() > 0 {
		status = store.RunStatusFailed
	}
	r.finishRun(ctx, run, status)

	if n := failed.Load(); n > 0 {
		return eris.Errorf("eval: %d of %d folds failed", n, len(selected))
	}
	r.log.Info("cross-validation complete", zap.Int("folds", len(selected)))
	return nil
}

func (r *Runner) runFold(ctx context.Context, settings method.Settings, fold *folds.Fold, gold Gold, run *store.Run) error {
	log := r.log.With(zap.String("fold", fold.Name))
	log.Info("training", zap.Int("held_out", len(fold.HeldOut)))

	c, err := corpus.Open(r.opts.DatasetDir, fold.HeldOut)
	if err != nil {
		return err
	}

	modelDir := filepath.Join(r.opts.ResultsDir, fold.Name)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return eris.Wrapf(err, "eval: create model directory %s", modelDir)
	}

	m, err := r.registry.Lookup(r.opts.Method)
	if err != nil {
		return err
	}
	initial, final, err := m.TrainModel(settings, c, modelDir)
	if err != nil {
		return eris.Wrapf(err, "eval: train fold %s", fold.Name)
	}
	if err := validateState(initial, final); err != nil {
		return err
	}

	w, err := NewResultsWriter(filepath.Join(r.opts.ResultsDir, fold.Name+".results.tsv.gz"))
	if err != nil {
		return err
	}
	score, scoreErr := scoreFold(initial, final, gold, w)
	if closeErr := w.Close(); scoreErr == nil {
		scoreErr = closeErr
	}
	if scoreErr != nil {
		return scoreErr
	}

	if r.ledger != nil && run != nil {
		if err := r.ledger.RecordFold(ctx, &store.FoldResult{
			RunID:       run.ID,
			FoldName:    fold.Name,
			Tested:      score.Tested,
			Unscoreable: score.Unscoreable,
			MeanKm:      score.MeanKm,
			MedianKm:    score.MedianKm,
		}); err != nil {
			log.Warn("could not record fold in ledger", zap.Error(err))
		}
	}

	log.Info("fold scored",
		zap.Int("tested", score.Tested),
		zap.Int("unscoreable", score.Unscoreable),
		zap.Float64("mean_km", score.MeanKm),
		zap.Float64("median_km", score.MedianKm),
	)
	return nil
}

func (r *Runner) finishRun(ctx context.Context, run *store.Run, status store.RunStatus) {
	if r.ledger == nil || run == nil {
		return
	}
	if err := r.ledger.FinishRun(ctx, run.ID, status); err != nil {
		r.log.Warn("could not update run status", zap.Error(err))
	}
}
