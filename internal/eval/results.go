package eval

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"

	"github.com/rotisserie/eris"

	"github.com/networkdynamics/geoinf/internal/geo"
)

// noneToken marks unscoreable fields in a results row.
const noneToken = "none"

// resultsHeader is the fixed column set of a per-fold results file.
const resultsHeader = "user_id\tknown_lat\tknown_lon\tpred_lat\tpred_lon\tdistance_km\n"

// ResultsWriter appends rows to a gzip-compressed tab-separated results
// file. Rows are flushed on Close; a writer abandoned mid-fold leaves a
// truncated but well-formed file.
type ResultsWriter struct {
	file *os.File
	gz   *gzip.Writer
	buf  *bufio.Writer
	rows int
}

// NewResultsWriter creates the results file for one fold and writes the
// header.
func NewResultsWriter(path string) (*ResultsWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "eval: create results file %s", path)
	}
	gz := gzip.NewWriter(f)
	buf := bufio.NewWriter(gz)
	if _, err := buf.WriteString(resultsHeader); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "eval: write results header")
	}
	return &ResultsWriter{file: f, gz: gz, buf: buf}, nil
}

// WriteScored appends a row for a user with both a prediction and a gold
// location.
func (w *ResultsWriter) WriteScored(userID string, known, pred geo.Coordinate, distanceKm float64) error {
	row := fmt.Sprintf("%s\t%f\t%f\t%f\t%f\t%.3f\n",
		userID, known.Lat, known.Lon, pred.Lat, pred.Lon, distanceKm)
	if _, err := w.buf.WriteString(row); err != nil {
		return eris.Wrap(err, "eval: write scored row")
	}
	w.rows++
	return nil
}

// WriteUnscoreable appends a row for a user predicted without a gold
// location; the unknowable fields carry the none token.
func (w *ResultsWriter) WriteUnscoreable(userID string, pred geo.Coordinate) error {
	row := fmt.Sprintf("%s\t%s\t%s\t%f\t%f\t%s\n",
		userID, noneToken, noneToken, pred.Lat, pred.Lon, noneToken)
	if _, err := w.buf.WriteString(row); err != nil {
		return eris.Wrap(err, "eval: write unscoreable row")
	}
	w.rows++
	return nil
}

// Rows returns the number of rows written so far, excluding the header.
func (w *ResultsWriter) Rows() int { return w.rows }

// Close flushes and closes the file. It must run before the orchestrator
// advances to the next fold.
func (w *ResultsWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.gz.Close()
		w.file.Close()
		return eris.Wrap(err, "eval: flush results")
	}
	if err := w.gz.Close(); err != nil {
		w.file.Close()
		return eris.Wrap(err, "eval: close gzip stream")
	}
	return eris.Wrap(w.file.Close(), "eval: close results file")
}
