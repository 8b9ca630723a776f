package folds

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PlanFile is the fold-plan index within a fold directory. Each row is
// "fold_name \t held_out_users_filename"; the companion file lists one
// held-out user id per line.
const PlanFile = "folds.info.tsv"

// WritePlan persists the plan into dir, which must not already exist unless
// force is set.
func WritePlan(plan *FoldPlan, dir string, force bool) error {
	if _, err := os.Stat(dir); err == nil && !force {
		return eris.Errorf("folds: output directory %s already exists (use --force to overwrite)", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "folds: create %s", dir)
	}

	info, err := os.Create(filepath.Join(dir, PlanFile))
	if err != nil {
		return eris.Wrap(err, "folds: create plan file")
	}
	defer info.Close()

	w := bufio.NewWriter(info)
	for i := range plan.Folds {
		fold := &plan.Folds[i]
		usersName := fold.Name + ".user-ids.txt"
		if _, err := w.WriteString(fold.Name + "\t" + usersName + "\n"); err != nil {
			return eris.Wrap(err, "folds: write plan row")
		}
		if err := writeFoldUsers(filepath.Join(dir, usersName), fold); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "folds: flush plan file")
	}

	zap.L().Info("fold plan written",
		zap.String("dir", dir),
		zap.String("attribute", plan.Attribute),
		zap.Int("folds", len(plan.Folds)),
	)
	return nil
}

func writeFoldUsers(path string, fold *Fold) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "folds: create %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, id := range fold.HeldOutList() {
		if _, err := w.WriteString(id + "\n"); err != nil {
			return eris.Wrapf(err, "folds: write %s", path)
		}
	}
	return eris.Wrapf(w.Flush(), "folds: flush %s", path)
}

// LoadPlan reads a fold directory written by WritePlan. A missing plan file
// is fatal to the caller; a malformed row is too, since a truncated plan
// silently changes which users are evaluated.
func LoadPlan(dir string) (*FoldPlan, error) {
	path := filepath.Join(dir, PlanFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "folds: open plan %s", path)
	}
	defer f.Close()

	plan := &FoldPlan{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			return nil, eris.Errorf("folds: malformed plan row %q in %s", line, path)
		}
		held, err := loadFoldUsers(filepath.Join(dir, parts[1]))
		if err != nil {
			return nil, err
		}
		plan.Folds = append(plan.Folds, Fold{Name: parts[0], HeldOut: held})
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "folds: read plan %s", path)
	}
	if len(plan.Folds) == 0 {
		return nil, eris.Errorf("folds: plan %s contains no folds", path)
	}
	return plan, nil
}

func loadFoldUsers(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "folds: open fold users %s", path)
	}
	defer f.Close()

	held := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		id := strings.TrimSpace(sc.Text())
		if id != "" {
			held[id] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "folds: read fold users %s", path)
	}
	return held, nil
}

// Strata holds per-user stratification labels parsed from the ground-truth
// file.
type Strata struct {
	Gender map[string]Category
	Urban  map[string]Category
}

// LoadStrata reads a tab-separated ground-truth file with a header row and
// rows "uid \t gender \t urban_level". Malformed rows are skipped with a
// count; the urban level may be absent.
func LoadStrata(path string) (*Strata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "folds: open strata %s", path)
	}
	defer f.Close()

	s := &Strata{
		Gender: make(map[string]Category),
		Urban:  make(map[string]Category),
	}

	sc := bufio.NewScanner(f)
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
		if len(parts) < 2 {
			skipped++
			continue
		}
		uid := strings.TrimSpace(parts[0])
		gender := Category(strings.TrimSpace(parts[1]))
		if uid == "" {
			skipped++
			continue
		}
		switch gender {
		case CategoryMale, CategoryFemale, CategoryUnknown:
			s.Gender[uid] = gender
		default:
			skipped++
			continue
		}
		if len(parts) >= 3 {
			if level := Category(strings.TrimSpace(parts[2])); validUrban(level) {
				s.Urban[uid] = level
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "folds: read strata %s", path)
	}
	if skipped > 0 {
		zap.L().Info("strata file parsed with skipped rows",
			zap.String("path", path), zap.Int("skipped", skipped))
	}
	return s, nil
}

func validUrban(c Category) bool {
	switch c {
	case CategoryUrban1, CategoryUrban2, CategoryUrban3,
		CategoryUrban4, CategoryUrban5, CategoryUrban6:
		return true
	}
	return false
}
