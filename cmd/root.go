package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/networkdynamics/geoinf/internal/config"
	"github.com/networkdynamics/geoinf/internal/method"
	"github.com/networkdynamics/geoinf/internal/methods/centroid"
	"github.com/networkdynamics/geoinf/internal/store"
)

var (
	cfg      *config.Config
	registry *method.Registry
)

var rootCmd = &cobra.Command{
	Use:   "geoinf",
	Short: "Geoinference training, inference, and evaluation harness",
	Long:  "Trains pluggable location-inference methods on social-media datasets, runs post- and user-level inference, and benchmarks methods with stratified cross-validation.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		registry, err = buildRegistry()
		if err != nil {
			return fmt.Errorf("build method registry: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// buildRegistry registers every shipped inference method.
func buildRegistry() (*method.Registry, error) {
	reg := method.NewRegistry()
	if err := reg.Register(centroid.Name, centroid.New); err != nil {
		return nil, err
	}
	return reg, nil
}

// openLedger opens the run ledger, or returns nil when disabled by
// configuration.
func openLedger(ctx context.Context) (store.Store, error) {
	if cfg.Ledger.Path == "" {
		return nil, nil
	}
	st, err := store.NewSQLite(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// loadSettingsFlag reads the --settings flag into method settings; an unset
// flag yields empty settings.
func loadSettingsFlag(cmd *cobra.Command) (method.Settings, error) {
	path, _ := cmd.Flags().GetString("settings")
	if path == "" {
		return method.Settings{}, nil
	}
	return method.LoadSettings(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
