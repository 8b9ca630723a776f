package corpus

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Mention-network edge list files within a dataset directory.
const (
	MentionNetworkFile   = "mention_network.elist"
	BiMentionNetworkFile = "bi_mention_network.elist"
)

// Edge is one mention relation. Weight is 1 for unweighted edge lists.
type Edge struct {
	From   string
	To     string
	Weight float64
}

// MentionEdges opens a streaming iterator over an edge-list file in the
// dataset directory. Methods that consume the mention graph pull edges one
// at a time rather than materializing the graph here.
func (c *Corpus) MentionEdges(filename string) (*EdgeIter, error) {
	path := filepath.Join(c.dir, filename)
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataset, "open %s: %v", path, err)
	}
	return &EdgeIter{
		file: f,
		sc:   bufio.NewScanner(f),
		log:  zap.L().Named("corpus"),
	}, nil
}

// EdgeIter is a single-pass cursor over an edge list. Malformed lines are
// skipped and counted.
type EdgeIter struct {
	file *os.File
	sc   *bufio.Scanner
	log  *zap.Logger

	current Edge
	skipped int
	err     error
	done    bool
}

// Next advances to the next well-formed edge.
func (it *EdgeIter) Next() bool {
	if it.done {
		return false
	}
	for it.sc.Scan() {
		fields := strings.Fields(it.sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			it.skipped++
			continue
		}
		edge := Edge{From: fields[0], To: fields[1], Weight: 1}
		if len(fields) >= 3 {
			w, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				it.skipped++
				continue
			}
			edge.Weight = w
		}
		it.current = edge
		return true
	}
	it.err = it.sc.Err()
	it.done = true
	return false
}

// Edge returns the record positioned by the last successful Next.
func (it *EdgeIter) Edge() Edge { return it.current }

// Skipped returns the running count of malformed lines passed over.
func (it *EdgeIter) Skipped() int { return it.skipped }

// Err returns the stream-level error, if any.
func (it *EdgeIter) Err() error {
	return eris.Wrap(it.err, "corpus: edge stream")
}

// Close releases the underlying file and logs the malformed-line count.
func (it *EdgeIter) Close() error {
	it.done = true
	if it.skipped > 0 {
		it.log.Info("edge stream finished with skipped lines",
			zap.Int("skipped", it.skipped))
	}
	return eris.Wrap(it.file.Close(), "corpus: close edge list")
}
