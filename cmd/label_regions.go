package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/networkdynamics/geoinf/internal/eval"
	"github.com/networkdynamics/geoinf/internal/geo"
	"github.com/networkdynamics/geoinf/internal/regions"
)

var labelRegionsCmd = &cobra.Command{
	Use:   "label_regions <gold_locations> <county_shp> <urban_levels_csv> <output_tsv>",
	Short: "Attach county-based urban-density labels to located users",
	Long:  "Resolves each gold-located user to a US county and joins the county's urban-density level, producing a ground-truth TSV usable for stratified fold generation.",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		goldPath, shpPath, levelsPath, outPath := args[0], args[1], args[2], args[3]
		genderPath, _ := cmd.Flags().GetString("gender-file")

		gold, err := eval.LoadGold(goldPath)
		if err != nil {
			return err
		}
		ix, err := regions.LoadCounties(shpPath)
		if err != nil {
			return err
		}
		levels, err := regions.LoadUrbanLevels(levelsPath)
		if err != nil {
			return err
		}

		gender := map[string]string{}
		if genderPath != "" {
			gender, err = loadGenderFile(genderPath)
			if err != nil {
				return err
			}
		}

		labels := ix.LabelUsers(map[string]geo.Coordinate(gold), levels)
		if err := writeGroundTruth(outPath, gold, gender, labels); err != nil {
			return err
		}

		fmt.Printf("labeled %d of %d users, ground truth written to %s\n",
			len(labels), len(gold), outPath)
		return nil
	},
}

// loadGenderFile reads a TSV of "uid gender" rows with a header.
func loadGenderFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "labels: open gender file %s", path)
	}
	defer f.Close()

	gender := make(map[string]string)
	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if first {
			first = false
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 || parts[0] == "" {
			continue
		}
		gender[parts[0]] = parts[1]
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "labels: read gender file %s", path)
	}
	return gender, nil
}

// writeGroundTruth writes "uid gender urban_level" rows for every gold user,
// sorted by user id. Users without a gender label default to unknown; the
// urban level column is empty for users outside the county index.
func writeGroundTruth(path string, gold eval.Gold, gender, labels map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "labels: create output %s", path)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if _, err := w.WriteString("uid\tgender\turban_level\n"); err != nil {
		return eris.Wrap(err, "labels: write header")
	}

	ids := make([]string, 0, len(gold))
	for uid := range gold {
		ids = append(ids, uid)
	}
	sort.Strings(ids)

	for _, uid := range ids {
		g, ok := gender[uid]
		if !ok {
			g = "n"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", uid, g, labels[uid]); err != nil {
			return eris.Wrap(err, "labels: write row")
		}
	}
	return eris.Wrap(w.Flush(), "labels: flush output")
}

func init() {
	labelRegionsCmd.Flags().String("gender-file", "", "optional TSV of uid and gender labels to merge")
	rootCmd.AddCommand(labelRegionsCmd)
}
