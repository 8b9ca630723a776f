package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/networkdynamics/geoinf/internal/geo"
	"github.com/networkdynamics/geoinf/internal/median"
)

var computeMediansCmd = &cobra.Command{
	Use:   "compute_medians <points_csv> <output_tsv>",
	Short: "Compute per-user home locations from observed coordinates",
	Long:  "Reads CSV rows of user_id,lat,lon grouped by user and writes one robust home-location estimate per accepted user. Users with too few points or too dispersed a footprint are rejected.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		skipFiles, _ := cmd.Flags().GetStringSlice("skip")
		keepAll, _ := cmd.Flags().GetBool("keep-all-users")
		minPoints, _ := cmd.Flags().GetInt("min-points")
		maxMADKm, _ := cmd.Flags().GetFloat64("max-mad-km")

		opts := median.DefaultOptions()
		opts.MinPoints = cfg.Median.MinPoints
		opts.MaxMADKm = cfg.Median.MaxMADKm
		opts.ConvergenceM = cfg.Median.ConvergenceM
		opts.MaxIterations = cfg.Median.MaxIterations
		if minPoints > 0 {
			opts.MinPoints = minPoints
		}
		if maxMADKm > 0 {
			opts.MaxMADKm = maxMADKm
		}

		done, err := loadComputedUsers(skipFiles)
		if err != nil {
			return err
		}

		return computeMedians(args[0], args[1], median.New(opts), done, keepAll)
	},
}

// loadComputedUsers collects user ids from previously written median files,
// so interrupted jobs can resume without recomputing.
func loadComputedUsers(paths []string) (map[string]struct{}, error) {
	done := make(map[string]struct{})
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "medians: open skip file %s", path)
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			uid, _, ok := strings.Cut(sc.Text(), "\t")
			if ok && uid != "" {
				done[uid] = struct{}{}
			}
		}
		err = sc.Err()
		f.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "medians: read skip file %s", path)
		}
	}
	return done, nil
}

func computeMedians(inPath, outPath string, est *median.Estimator, done map[string]struct{}, keepAll bool) error {
	in, err := os.Open(inPath)
	if err != nil {
		return eris.Wrapf(err, "medians: open points %s", inPath)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return eris.Wrapf(err, "medians: create output %s", outPath)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	// Header matches the gold-locations format consumed by cross_validate.
	if _, err := w.WriteString("uid\tlat\tlon\n"); err != nil {
		return eris.Wrap(err, "medians: write header")
	}

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	log := zap.L().Named("medians")
	var (
		currentUID string
		points     []geo.Coordinate
		users      int
		accepted   int
		skipped    int
		badRows    int
	)

	flush := func() error {
		if currentUID == "" {
			return nil
		}
		users++
		defer func() { points = points[:0] }()
		if _, computed := done[currentUID]; computed {
			skipped++
			return nil
		}
		if users%2500 == 0 {
			log.Info("median progress",
				zap.Int("users_seen", users), zap.Int("accepted", accepted))
		}

		res := est.Estimate(currentUID, points)
		if res.OK {
			accepted++
			_, err := fmt.Fprintf(w, "%s\t%f\t%f\n", currentUID, res.Coord.Lat, res.Coord.Lon)
			return eris.Wrap(err, "medians: write row")
		}
		if keepAll {
			_, err := fmt.Fprintf(w, "%s\tnone\tnone\n", currentUID)
			return eris.Wrap(err, "medians: write row")
		}
		return nil
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return eris.Wrapf(err, "medians: read points %s", inPath)
		}
		if len(rec) < 3 {
			badRows++
			continue
		}
		uid := rec[0]
		lat, latErr := strconv.ParseFloat(rec[1], 64)
		lon, lonErr := strconv.ParseFloat(rec[2], 64)
		if uid == "" || latErr != nil || lonErr != nil {
			badRows++
			continue
		}
		c := geo.Coordinate{Lat: lat, Lon: lon}
		if !c.Valid() {
			badRows++
			continue
		}

		if uid != currentUID {
			if err := flush(); err != nil {
				return err
			}
			currentUID = uid
		}
		points = append(points, c)
	}
	if err := flush(); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "medians: flush output")
	}

	log.Info("medians complete",
		zap.Int("users_seen", users),
		zap.Int("accepted", accepted),
		zap.Int("already_computed", skipped),
		zap.Int("bad_rows", badRows),
	)
	return nil
}

func init() {
	computeMediansCmd.Flags().StringSlice("skip", nil, "previously computed median files whose users are not recomputed")
	computeMediansCmd.Flags().Bool("keep-all-users", false, "emit rejected users with empty coordinates")
	computeMediansCmd.Flags().Int("min-points", 0, "minimum observed points per user (0 = config default)")
	computeMediansCmd.Flags().Float64("max-mad-km", 0, "dispersion rejection threshold in km (0 = config default)")
	rootCmd.AddCommand(computeMediansCmd)
}
