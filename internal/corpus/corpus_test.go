package corpus

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDataset lays out a dataset directory with the given users.json.gz
// lines.
func writeDataset(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()

	f, err := os.Create(filepath.Join(dir, UsersFile))
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	for _, line := range lines {
		_, err := gz.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	return dir
}

const (
	userAlpha = `{"user_id":"alpha","posts":[` +
		`{"id":1,"user_id":"alpha","text":"hi","geo":{"type":"Point","coordinates":[44.97,-93.26]}},` +
		`{"id":2,"user_id":"alpha","text":"no geotag"}]}`
	userBeta = `{"user_id":"beta","posts":[` +
		`{"id":3,"user_id":"beta","geo":{"type":"Point","coordinates":[40.71,-74.0]}}]}`
)

func TestOpenMissingUsersFileIsDatasetError(t *testing.T) {
	_, err := Open(t.TempDir(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataset)
}

func TestUsersStream(t *testing.T) {
	dir := writeDataset(t, []string{userAlpha, userBeta})
	c, err := Open(dir, nil)
	require.NoError(t, err)

	it, err := c.Users()
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	alpha := it.User()
	assert.Equal(t, "alpha", alpha.UserID)
	require.Len(t, alpha.Posts, 2)
	require.NotNil(t, alpha.Posts[0].Coord)
	assert.Equal(t, 44.97, alpha.Posts[0].Coord.Lat)
	assert.Equal(t, -93.26, alpha.Posts[0].Coord.Lon)
	assert.Nil(t, alpha.Posts[1].Coord)
	assert.Equal(t, "alpha", alpha.Posts[1].UserID)

	require.True(t, it.Next())
	assert.Equal(t, "beta", it.User().UserID)

	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
	assert.Zero(t, it.Skipped())
}

func TestRedactionStripsCoordinatesAtYield(t *testing.T) {
	dir := writeDataset(t, []string{userAlpha, userBeta})

	redacted, err := Open(dir, map[string]struct{}{"alpha": {}})
	require.NoError(t, err)

	it, err := redacted.Users()
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	alpha := it.User()
	for _, p := range alpha.Posts {
		assert.Nil(t, p.Coord)
		assert.NotContains(t, string(p.Raw), "coordinates")
	}

	// beta is not in the redaction set and keeps its geotag.
	require.True(t, it.Next())
	require.NotNil(t, it.User().Posts[0].Coord)

	// The unredacted view of the same directory is unaffected.
	plain, err := Open(dir, nil)
	require.NoError(t, err)
	it2, err := plain.Users()
	require.NoError(t, err)
	defer it2.Close()
	require.True(t, it2.Next())
	require.NotNil(t, it2.User().Posts[0].Coord)
}

func TestMalformedLinesSkippedNotFatal(t *testing.T) {
	dir := writeDataset(t, []string{
		userAlpha,
		`{not json`,
		`{"posts":[]}`, // missing user_id
		`{"user_id":"gamma","posts":[{"id":9,"user_id":"OTHER"}]}`, // parent mismatch
		userBeta,
	})
	c, err := Open(dir, nil)
	require.NoError(t, err)

	it, err := c.Users()
	require.NoError(t, err)
	defer it.Close()

	var ids []string
	for it.Next() {
		ids = append(ids, it.User().UserID)
	}
	assert.NoError(t, it.Err())
	assert.Equal(t, []string{"alpha", "beta"}, ids)
	assert.Equal(t, 3, it.Skipped())
}

func TestPostsFlattenedInUserOrder(t *testing.T) {
	dir := writeDataset(t, []string{userAlpha, userBeta})
	c, err := Open(dir, nil)
	require.NoError(t, err)

	it, err := c.Posts()
	require.NoError(t, err)
	defer it.Close()

	var ids []string
	for it.Next() {
		ids = append(ids, it.Post().ID)
	}
	assert.NoError(t, it.Err())
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestIteratorsAreIndependent(t *testing.T) {
	dir := writeDataset(t, []string{userAlpha, userBeta})
	c, err := Open(dir, nil)
	require.NoError(t, err)

	a, err := c.Users()
	require.NoError(t, err)
	defer a.Close()
	b, err := c.Users()
	require.NoError(t, err)
	defer b.Close()

	require.True(t, a.Next())
	require.True(t, a.Next())
	// b starts from the beginning regardless of a's position.
	require.True(t, b.Next())
	assert.Equal(t, "alpha", b.User().UserID)
}

func TestStringIDAcceptsStringAndNumber(t *testing.T) {
	var s stringID
	require.NoError(t, s.UnmarshalJSON([]byte(`"12345"`)))
	assert.Equal(t, stringID("12345"), s)
	require.NoError(t, s.UnmarshalJSON([]byte(`678`)))
	assert.Equal(t, stringID("678"), s)
	require.NoError(t, s.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, stringID(""), s)
}

func TestMentionEdges(t *testing.T) {
	dir := writeDataset(t, []string{userAlpha})
	elist := "alpha beta\nbeta gamma 2.5\nbadline\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, MentionNetworkFile), []byte(elist), 0o644))

	c, err := Open(dir, nil)
	require.NoError(t, err)

	it, err := c.MentionEdges(MentionNetworkFile)
	require.NoError(t, err)
	defer it.Close()

	var edges []Edge
	for it.Next() {
		edges = append(edges, it.Edge())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []Edge{
		{From: "alpha", To: "beta", Weight: 1},
		{From: "beta", To: "gamma", Weight: 2.5},
	}, edges)
	assert.Equal(t, 1, it.Skipped())
}

func TestMentionEdgesMissingFile(t *testing.T) {
	dir := writeDataset(t, []string{userAlpha})
	c, err := Open(dir, nil)
	require.NoError(t, err)

	_, err = c.MentionEdges(BiMentionNetworkFile)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataset)
}

func TestGeoFieldRejectsNonPoint(t *testing.T) {
	line := `{"user_id":"x","posts":[{"id":1,"geo":{"type":"LineString","coordinates":[[0,0],[1,1]]}}]}`
	dir := writeDataset(t, []string{line, userBeta})
	c, err := Open(dir, nil)
	require.NoError(t, err)

	it, err := c.Users()
	require.NoError(t, err)
	defer it.Close()

	var ids []string
	for it.Next() {
		ids = append(ids, it.User().UserID)
	}
	assert.Equal(t, []string{"beta"}, ids)
	assert.Equal(t, 1, it.Skipped())
}

func TestRedactedRawLosesGeoKeys(t *testing.T) {
	p := Post{Raw: []byte(`{"id":1,"text":"hi","geo":{"type":"Point","coordinates":[1,2]},"place":{"name":"x"}}`)}
	r := p.redact()
	s := string(r.Raw)
	assert.False(t, strings.Contains(s, "geo"))
	assert.False(t, strings.Contains(s, "place"))
	assert.True(t, strings.Contains(s, "text"))
}
