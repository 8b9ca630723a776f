// Package config loads application configuration from file and environment
// and installs the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Folds  FoldsConfig  `yaml:"folds" mapstructure:"folds"`
	Median MedianConfig `yaml:"median" mapstructure:"median"`
	Eval   EvalConfig   `yaml:"eval" mapstructure:"eval"`
	Ledger LedgerConfig `yaml:"ledger" mapstructure:"ledger"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// FoldsConfig configures cross-validation fold generation.
type FoldsConfig struct {
	PerCategory int   `yaml:"per_category" mapstructure:"per_category"`
	SampleCap   int   `yaml:"sample_cap" mapstructure:"sample_cap"`
	Seed        int64 `yaml:"seed" mapstructure:"seed"`
}

// MedianConfig configures the geometric-median estimator.
type MedianConfig struct {
	MinPoints     int     `yaml:"min_points" mapstructure:"min_points"`
	MaxMADKm      float64 `yaml:"max_mad_km" mapstructure:"max_mad_km"`
	ConvergenceM  float64 `yaml:"convergence_m" mapstructure:"convergence_m"`
	MaxIterations int     `yaml:"max_iterations" mapstructure:"max_iterations"`
}

// EvalConfig configures the cross-validation orchestrator.
type EvalConfig struct {
	Parallel int `yaml:"parallel" mapstructure:"parallel"`
}

// LedgerConfig configures the run ledger. An empty path disables recording.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOINF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("folds.per_category", 5)
	v.SetDefault("folds.sample_cap", 0)
	v.SetDefault("folds.seed", 1)
	v.SetDefault("median.min_points", 3)
	v.SetDefault("median.max_mad_km", 30.0)
	v.SetDefault("median.convergence_m", 1.0)
	v.SetDefault("median.max_iterations", 1000)
	v.SetDefault("eval.parallel", 1)
	v.SetDefault("ledger.path", "geoinf-runs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
