package eval

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/networkdynamics/geoinf/internal/geo"
)

// Gold is the ground-truth location table. It is loaded once per run and
// never mutated by the evaluation pipeline.
type Gold map[string]geo.Coordinate

// LoadGold reads a gold-location file: tab-separated `uid lat lon` rows with
// a header line, gzip-compressed when the path ends in .gz. Malformed rows
// are skipped with a count; a missing file is fatal to the caller.
func LoadGold(path string) (Gold, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "eval: open gold locations %s", path)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, eris.Wrapf(err, "eval: gunzip gold locations %s", path)
		}
		defer gz.Close()
		r = gz
	}

	gold := make(Gold)
	sc := bufio.NewScanner(r)
	first := true
	skipped := 0
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if first {
			first = false
			continue
		}
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			skipped++
			continue
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if latErr != nil || lonErr != nil {
			skipped++
			continue
		}
		c := geo.Coordinate{Lat: lat, Lon: lon}
		if !c.Valid() {
			skipped++
			continue
		}
		gold[strings.TrimSpace(parts[0])] = c
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "eval: read gold locations %s", path)
	}
	if skipped > 0 {
		zap.L().Info("gold locations loaded with skipped rows",
			zap.String("path", path),
			zap.Int("loaded", len(gold)),
			zap.Int("skipped", skipped),
		)
	}
	return gold, nil
}
