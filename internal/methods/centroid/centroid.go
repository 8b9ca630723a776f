// Package centroid implements the user-centroid baseline: each user with at
// least one visible geotagged post is located at the arithmetic centroid of
// those posts. It exists as a plumbing sanity check and a floor for real
// inference methods to beat.
package centroid

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/networkdynamics/geoinf/internal/corpus"
	"github.com/networkdynamics/geoinf/internal/geo"
	"github.com/networkdynamics/geoinf/internal/method"
)

// Name is the registry name of this method.
const Name = "user-centroid"

// ModelFile is the persisted model artifact inside a model directory.
const ModelFile = "user-centroids.json"

// New constructs a fresh method instance; registered as the factory for Name.
func New() method.Method {
	return &Centroid{}
}

// Centroid is the method implementation. It carries no state between calls;
// the trained table lives in the Model.
type Centroid struct{}

// TrainModel scans the corpus once and computes per-user centroids from
// visible geotagged posts. The initial state is empty: this method knows no
// locations before it trains, so every resolved user counts as newly
// resolved.
func (m *Centroid) TrainModel(settings method.Settings, c *corpus.Corpus, modelDir string) (method.Locations, method.Locations, error) {
	minPosts := 1
	if v, ok := settings["min_posts"]; ok {
		switch n := v.(type) {
		case int:
			minPosts = n
		case float64:
			minPosts = int(n)
		}
	}

	it, err := c.Users()
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()

	log := zap.L().Named("centroid")
	final := method.Locations{}
	seen := 0
	for it.Next() {
		user := it.User()
		seen++
		if seen%2500 == 0 {
			log.Info("training progress",
				zap.Int("users_seen", seen),
				zap.Int("users_located", len(final)),
			)
		}

		var sumLat, sumLon float64
		n := 0
		for _, post := range user.Posts {
			if post.Coord == nil {
				continue
			}
			sumLat += post.Coord.Lat
			sumLon += post.Coord.Lon
			n++
		}
		if n < minPosts || n == 0 {
			continue
		}
		final[user.UserID] = geo.Coordinate{
			Lat: sumLat / float64(n),
			Lon: sumLon / float64(n),
		}.Round()
	}
	if err := it.Err(); err != nil {
		return nil, nil, err
	}

	if modelDir != "" {
		if err := saveModel(modelDir, final); err != nil {
			return nil, nil, err
		}
	}

	return method.Locations{}, final, nil
}

// LoadModel restores the centroid table persisted by TrainModel.
func (m *Centroid) LoadModel(modelDir string, settings method.Settings) (method.Model, error) {
	path := filepath.Join(modelDir, ModelFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "centroid: read model %s", path)
	}
	var table method.Locations
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, eris.Wrapf(err, "centroid: decode model %s", path)
	}
	return &Model{table: table}, nil
}

func saveModel(modelDir string, table method.Locations) error {
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return eris.Wrapf(err, "centroid: create model dir %s", modelDir)
	}
	data, err := json.Marshal(table)
	if err != nil {
		return eris.Wrap(err, "centroid: encode model")
	}
	path := filepath.Join(modelDir, ModelFile)
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "centroid: write model %s", path)
}

// Model answers inference queries from the trained centroid table.
type Model struct {
	table method.Locations
}

// InferPostLocation places a post at its author's centroid, or nil for
// authors the model never located.
func (m *Model) InferPostLocation(post corpus.Post) (*geo.Coordinate, error) {
	if loc, ok := m.table[post.UserID]; ok {
		c := loc
		return &c, nil
	}
	return nil, nil
}

// InferPostsByUser places every post of a user at the user's centroid. The
// result always has one element per post.
func (m *Model) InferPostsByUser(userID string, posts []corpus.Post) ([]*geo.Coordinate, error) {
	out := make([]*geo.Coordinate, len(posts))
	loc, ok := m.table[userID]
	if !ok {
		return out, nil
	}
	for i := range out {
		c := loc
		out[i] = &c
	}
	return out, nil
}
