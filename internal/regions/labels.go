package regions

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/networkdynamics/geoinf/internal/geo"
)

// LoadUrbanLevels reads a county-to-urban-density table: CSV rows of
// "geoid,level" with a header, level running 1 (most urban) through 6 (most
// rural). Rows with an out-of-range level are skipped and counted.
func LoadUrbanLevels(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "regions: open urban levels %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "regions: parse urban levels %s", path)
	}

	levels := make(map[string]string)
	skipped := 0
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) < 2 {
			skipped++
			continue
		}
		geoid := strings.TrimSpace(rec[0])
		level := strings.TrimSpace(rec[1])
		if geoid == "" || !validLevel(level) {
			skipped++
			continue
		}
		levels[geoid] = level
	}
	if skipped > 0 {
		zap.L().Info("urban levels parsed with skipped rows",
			zap.String("path", path), zap.Int("skipped", skipped))
	}
	if len(levels) == 0 {
		return nil, eris.Errorf("regions: urban levels %s contains no usable rows", path)
	}
	return levels, nil
}

func validLevel(level string) bool {
	switch level {
	case "1", "2", "3", "4", "5", "6":
		return true
	}
	return false
}

// LabelUsers assigns each located user the urban-density level of the county
// containing their coordinate. Users outside every county, or in a county
// absent from the level table, are omitted from the result.
func (ix *Index) LabelUsers(users map[string]geo.Coordinate, levels map[string]string) map[string]string {
	out := make(map[string]string, len(users))
	unlocated := 0
	for uid, c := range users {
		county := ix.Locate(c)
		if county == nil {
			unlocated++
			continue
		}
		level, ok := levels[county.GEOID]
		if !ok {
			unlocated++
			continue
		}
		out[uid] = level
	}
	if unlocated > 0 {
		zap.L().Info("users without an urban label",
			zap.Int("unlabeled", unlocated), zap.Int("labeled", len(out)))
	}
	return out
}
