// Package folds builds and persists stratified k-fold cross-validation
// partitions of user ids.
package folds

import (
	"math/rand"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// Category is a stratification label. The harness ships gender and
// urban-density categories; fold generation itself treats them opaquely.
type Category string

// Gender categories from the ground-truth file.
const (
	CategoryMale    Category = "m"
	CategoryFemale  Category = "f"
	CategoryUnknown Category = "n"
)

// Urban-density levels run 1 (most urban) through 6 (most rural).
const (
	CategoryUrban1 Category = "1"
	CategoryUrban2 Category = "2"
	CategoryUrban3 Category = "3"
	CategoryUrban4 Category = "4"
	CategoryUrban5 Category = "5"
	CategoryUrban6 Category = "6"
)

// Fold is one cross-validation partition, identified by name and defined by
// the user ids held out of training when the fold runs.
type Fold struct {
	Name     string
	Category Category
	HeldOut  map[string]struct{}
}

// HeldOutList returns the held-out ids in sorted order, for stable output.
func (f *Fold) HeldOutList() []string {
	ids := make([]string, 0, len(f.HeldOut))
	for id := range f.HeldOut {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FoldPlan is the ordered collection of folds for one run plus the
// stratification metadata that produced it. Plans are values passed through
// the call chain; there is no package-level fold state.
type FoldPlan struct {
	Attribute        string
	FoldsPerCategory int
	Folds            []Fold
}

// Fold returns the named fold, or nil.
func (p *FoldPlan) Fold(name string) *Fold {
	for i := range p.Folds {
		if p.Folds[i].Name == name {
			return &p.Folds[i]
		}
	}
	return nil
}

// Generate partitions users into folds. With nil strata, all users form one
// bucket; otherwise users are bucketed by category (users without a label
// are excluded from the stratification universe) and each bucket
// independently receives foldsPerCategory folds, concatenated in category
// order. Each bucket is shuffled with the given seed and capped at
// sampleCap ids (0 = no cap) before splitting into contiguous partitions of
// equal size ±1; fold i holds out partition i.
//
// Generation is deterministic: the same seed and inputs produce identical
// fold membership.
func Generate(users []string, strata map[string]Category, foldsPerCategory, sampleCap int, seed int64) (*FoldPlan, error) {
	if foldsPerCategory < 2 {
		return nil, eris.Errorf("folds: folds per category must be at least 2 (got %d)", foldsPerCategory)
	}
	if len(users) == 0 {
		return nil, eris.New("folds: no eligible users")
	}

	plan := &FoldPlan{FoldsPerCategory: foldsPerCategory}
	rng := rand.New(rand.NewSource(seed))

	if strata == nil {
		plan.Attribute = "random"
		folds, err := generateBucket(users, "", foldsPerCategory, sampleCap, rng, 0)
		if err != nil {
			return nil, err
		}
		plan.Folds = folds
		return plan, nil
	}

	plan.Attribute = "stratified"
	buckets := make(map[Category][]string)
	for _, id := range users {
		cat, ok := strata[id]
		if !ok {
			continue
		}
		buckets[cat] = append(buckets[cat], id)
	}
	if len(buckets) == 0 {
		return nil, eris.New("folds: no users carry a stratification label")
	}

	// Category order must be stable for determinism.
	cats := make([]Category, 0, len(buckets))
	for cat := range buckets {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	next := 0
	for _, cat := range cats {
		folds, err := generateBucket(buckets[cat], cat, foldsPerCategory, sampleCap, rng, next)
		if err != nil {
			return nil, eris.Wrapf(err, "category %s", cat)
		}
		plan.Folds = append(plan.Folds, folds...)
		next += len(folds)
	}
	return plan, nil
}

// generateBucket shuffles, caps, and splits one bucket of user ids.
// firstIndex numbers the folds within the whole plan.
func generateBucket(users []string, cat Category, numFolds, sampleCap int, rng *rand.Rand, firstIndex int) ([]Fold, error) {
	if len(users) < numFolds {
		return nil, eris.Errorf("folds: %d users cannot fill %d folds", len(users), numFolds)
	}

	// Shuffle a copy; input order is the caller's business. Sorting first
	// makes membership independent of input order, not just seed.
	sample := append([]string(nil), users...)
	sort.Strings(sample)
	rng.Shuffle(len(sample), func(i, j int) {
		sample[i], sample[j] = sample[j], sample[i]
	})
	if sampleCap > 0 && len(sample) > sampleCap {
		sample = sample[:sampleCap]
	}

	folds := make([]Fold, 0, numFolds)
	size := len(sample) / numFolds
	remainder := len(sample) % numFolds
	start := 0
	for i := 0; i < numFolds; i++ {
		end := start + size
		if i < remainder {
			end++
		}
		held := make(map[string]struct{}, end-start)
		for _, id := range sample[start:end] {
			held[id] = struct{}{}
		}
		folds = append(folds, Fold{
			Name:     foldName(firstIndex + i),
			Category: cat,
			HeldOut:  held,
		})
		start = end
	}
	return folds, nil
}

func foldName(i int) string {
	return "fold_" + strconv.Itoa(i)
}
