package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkdynamics/geoinf/internal/median"
)

func runMedians(t *testing.T, csvBody string, done map[string]struct{}, keepAll bool) []string {
	t.Helper()
	dir := t.TempDir()
	inPath := filepath.Join(dir, "points.csv")
	outPath := filepath.Join(dir, "medians.tsv")
	require.NoError(t, os.WriteFile(inPath, []byte(csvBody), 0o644))

	require.NoError(t, computeMedians(inPath, outPath, median.New(median.DefaultOptions()), done, keepAll))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	out := strings.TrimRight(string(data), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestComputeMedians(t *testing.T) {
	csvBody := strings.Join([]string{
		"u1,40.0,-90.0",
		"u1,40.0,-90.0",
		"u1,40.1,-90.1",
		"u2,10.0,10.0", // too few points
		"junk row",
		"u3,not-a-number,5",
	}, "\n") + "\n"

	rows := runMedians(t, csvBody, nil, false)
	require.Len(t, rows, 2)
	assert.Equal(t, "uid\tlat\tlon", rows[0])
	fields := strings.Split(rows[1], "\t")
	require.Len(t, fields, 3)
	assert.Equal(t, "u1", fields[0])
	assert.Equal(t, "40.000000", fields[1])
	assert.Equal(t, "-90.000000", fields[2])
}

func TestComputeMediansKeepAllUsers(t *testing.T) {
	csvBody := strings.Join([]string{
		"u1,40.0,-90.0",
		"u1,40.0,-90.0",
		"u1,40.0,-90.0",
		"u2,10.0,10.0",
	}, "\n") + "\n"

	rows := runMedians(t, csvBody, nil, true)
	require.Len(t, rows, 3)
	assert.Equal(t, "u2\tnone\tnone", rows[2])
}

func TestComputeMediansSkipsComputedUsers(t *testing.T) {
	csvBody := strings.Join([]string{
		"u1,40.0,-90.0",
		"u1,40.0,-90.0",
		"u1,40.0,-90.0",
		"u2,50.0,-80.0",
		"u2,50.0,-80.0",
		"u2,50.0,-80.0",
	}, "\n") + "\n"

	rows := runMedians(t, csvBody, map[string]struct{}{"u1": {}}, false)
	require.Len(t, rows, 2)
	assert.True(t, strings.HasPrefix(rows[1], "u2\t"))
}

func TestLoadComputedUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prev.tsv")
	require.NoError(t, os.WriteFile(path,
		[]byte("u1\t40.000000\t-90.000000\nu2\tnone\tnone\nno-tab-line\n"), 0o644))

	done, err := loadComputedUsers([]string{path})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"u1": {}, "u2": {}}, done)
}

func TestLoadComputedUsersMissingFile(t *testing.T) {
	_, err := loadComputedUsers([]string{filepath.Join(t.TempDir(), "nope.tsv")})
	assert.Error(t, err)
}
