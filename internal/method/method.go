// Package method defines the contract an inference method implements and the
// registry through which methods are discovered by name.
package method

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/networkdynamics/geoinf/internal/corpus"
	"github.com/networkdynamics/geoinf/internal/geo"
)

// Settings is the flat method configuration, loaded from a structured text
// file and passed through to implementations unmodified.
type Settings map[string]any

// LoadSettings reads a settings file. JSON and YAML are accepted, chosen by
// extension.
func LoadSettings(path string) (Settings, error) {
	v := viper.New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		v.SetConfigType("json")
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		return nil, eris.Errorf("method: unsupported settings format %q", filepath.Ext(path))
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, eris.Wrapf(err, "method: read settings %s", path)
	}
	return Settings(v.AllSettings()), nil
}

// Locations maps user ids to resolved home coordinates.
type Locations map[string]geo.Coordinate

// Method is one pluggable geoinference implementation. A Method instance is
// owned by the orchestrator for a single train/infer cycle and never shared
// across folds.
type Method interface {
	// TrainModel trains on the corpus and returns the location-knowledge
	// state before and after training, so the caller can compute the set of
	// users newly resolved. modelDir may be empty when the model is not
	// persisted.
	TrainModel(settings Settings, c *corpus.Corpus, modelDir string) (initial, final Locations, err error)

	// LoadModel restores a previously trained model for inference.
	LoadModel(modelDir string, settings Settings) (Model, error)
}

// Model answers inference queries against a trained model.
type Model interface {
	// InferPostLocation predicts a location for a single post, or nil when
	// the model cannot place it.
	InferPostLocation(post corpus.Post) (*geo.Coordinate, error)

	// InferPostsByUser predicts locations for a user's posts. The result
	// must have exactly one element per input post, positionally aligned;
	// a length mismatch is a contract violation, not a recoverable
	// condition.
	InferPostsByUser(userID string, posts []corpus.Post) ([]*geo.Coordinate, error)
}

// Factory constructs a fresh Method instance.
type Factory func() Method
