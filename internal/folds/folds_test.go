package folds

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userIDs(n int, prefix string) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return ids
}

func TestGenerateRandomPartitions(t *testing.T) {
	users := userIDs(103, "u")
	plan, err := Generate(users, nil, 5, 0, 42)
	require.NoError(t, err)
	require.Len(t, plan.Folds, 5)
	assert.Equal(t, "random", plan.Attribute)

	// Partitions are disjoint, sizes equal ±1, union covers the sample.
	seen := make(map[string]string)
	for _, fold := range plan.Folds {
		assert.InDelta(t, 103.0/5.0, float64(len(fold.HeldOut)), 1.0)
		for id := range fold.HeldOut {
			prev, dup := seen[id]
			assert.False(t, dup, "user %s in both %s and %s", id, prev, fold.Name)
			seen[id] = fold.Name
		}
	}
	assert.Len(t, seen, 103)
}

func TestGenerateDeterministic(t *testing.T) {
	users := userIDs(50, "u")

	a, err := Generate(users, nil, 5, 0, 7)
	require.NoError(t, err)
	b, err := Generate(users, nil, 5, 0, 7)
	require.NoError(t, err)

	require.Equal(t, len(a.Folds), len(b.Folds))
	for i := range a.Folds {
		assert.Equal(t, a.Folds[i].HeldOutList(), b.Folds[i].HeldOutList())
	}

	// A different seed moves users between folds.
	c, err := Generate(users, nil, 5, 0, 8)
	require.NoError(t, err)
	same := true
	for i := range a.Folds {
		if !assert.ObjectsAreEqual(a.Folds[i].HeldOutList(), c.Folds[i].HeldOutList()) {
			same = false
		}
	}
	assert.False(t, same, "different seeds should produce different membership")
}

func TestGenerateSampleCap(t *testing.T) {
	users := userIDs(100, "u")
	plan, err := Generate(users, nil, 4, 40, 1)
	require.NoError(t, err)

	total := 0
	for _, fold := range plan.Folds {
		total += len(fold.HeldOut)
	}
	assert.Equal(t, 40, total)
}

func TestGenerateStratified(t *testing.T) {
	var users []string
	strata := make(map[string]Category)
	for _, cat := range []Category{CategoryMale, CategoryFemale, CategoryUnknown} {
		for _, id := range userIDs(10, string(cat)) {
			users = append(users, id)
			strata[id] = cat
		}
	}
	// An unlabeled user is excluded from the stratification universe.
	users = append(users, "unlabeled")

	plan, err := Generate(users, strata, 5, 0, 42)
	require.NoError(t, err)
	require.Len(t, plan.Folds, 15)

	// Every fold's held-out set is drawn from exactly one category.
	for _, fold := range plan.Folds {
		cats := make(map[Category]struct{})
		for id := range fold.HeldOut {
			assert.NotEqual(t, "unlabeled", id)
			cats[strata[id]] = struct{}{}
		}
		assert.Len(t, cats, 1, "fold %s mixes categories", fold.Name)
	}

	// Fold names are sequential across the concatenated plan.
	for i, fold := range plan.Folds {
		assert.Equal(t, fmt.Sprintf("fold_%d", i), fold.Name)
	}
}

func TestGenerateErrors(t *testing.T) {
	_, err := Generate(userIDs(10, "u"), nil, 1, 0, 1)
	assert.Error(t, err, "fewer than two folds")

	_, err = Generate(nil, nil, 5, 0, 1)
	assert.Error(t, err, "no users")

	_, err = Generate(userIDs(3, "u"), nil, 5, 0, 1)
	assert.Error(t, err, "not enough users to fill folds")

	_, err = Generate(userIDs(10, "u"), map[string]Category{}, 2, 0, 1)
	assert.Error(t, err, "no labeled users")
}

func TestPlanRoundTrip(t *testing.T) {
	users := userIDs(30, "u")
	plan, err := Generate(users, nil, 3, 0, 11)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "folds")
	require.NoError(t, WritePlan(plan, dir, false))

	// Refusing to overwrite without force.
	assert.Error(t, WritePlan(plan, dir, false))
	assert.NoError(t, WritePlan(plan, dir, true))

	loaded, err := LoadPlan(dir)
	require.NoError(t, err)
	require.Len(t, loaded.Folds, 3)
	for i := range plan.Folds {
		assert.Equal(t, plan.Folds[i].Name, loaded.Folds[i].Name)
		assert.Equal(t, plan.Folds[i].HeldOutList(), loaded.Folds[i].HeldOutList())
	}
}

func TestLoadPlanMissing(t *testing.T) {
	_, err := LoadPlan(t.TempDir())
	assert.Error(t, err)
}

func TestFoldLookup(t *testing.T) {
	plan, err := Generate(userIDs(20, "u"), nil, 2, 0, 3)
	require.NoError(t, err)
	assert.NotNil(t, plan.Fold("fold_1"))
	assert.Nil(t, plan.Fold("fold_9"))
}

func TestLoadStrata(t *testing.T) {
	content := "uid\tgender\turban_level\n" +
		"u1\tm\t3\n" +
		"u2\tf\n" +
		"u3\tn\t9\n" + // invalid urban level, gender still kept
		"u4\tx\t1\n" + // invalid gender, row skipped
		"\n" +
		"garbage-no-tabs\n"
	path := filepath.Join(t.TempDir(), "groundtruth.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadStrata(path)
	require.NoError(t, err)
	assert.Equal(t, Category("m"), s.Gender["u1"])
	assert.Equal(t, Category("f"), s.Gender["u2"])
	assert.Equal(t, Category("n"), s.Gender["u3"])
	assert.NotContains(t, s.Gender, "u4")
	assert.Equal(t, Category("3"), s.Urban["u1"])
	assert.NotContains(t, s.Urban, "u3")
}
