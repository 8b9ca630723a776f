package regions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkdynamics/geoinf/internal/geo"
)

// writeCountyShapefile builds a two-county test shapefile: county 00001 is a
// unit square, county 00002 is a larger square with a rectangular hole.
func writeCountyShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "counties.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("GEOID", 5),
		shp.StringField("NAME", 20),
	})

	square := shp.Polygon(*shp.NewPolyLine([][]shp.Point{{
		{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
	}}))
	row := w.Write(&square)
	require.NoError(t, w.WriteAttribute(int(row), 0, "00001"))
	require.NoError(t, w.WriteAttribute(int(row), 1, "Alpha"))

	holed := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: 2, Y: 0}, {X: 2, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 0}, {X: 2, Y: 0}},
		{{X: 3, Y: 1}, {X: 3, Y: 3}, {X: 5, Y: 3}, {X: 5, Y: 1}, {X: 3, Y: 1}},
	}))
	row = w.Write(&holed)
	require.NoError(t, w.WriteAttribute(int(row), 0, "00002"))
	require.NoError(t, w.WriteAttribute(int(row), 1, "Beta"))

	w.Close()
	return path
}

func TestLocate(t *testing.T) {
	ix, err := LoadCounties(writeCountyShapefile(t))
	require.NoError(t, err)
	require.Equal(t, 2, ix.Len())

	tests := []struct {
		name  string
		coord geo.Coordinate
		geoid string
	}{
		{"inside unit square", geo.Coordinate{Lat: 0.5, Lon: 0.5}, "00001"},
		{"inside holed county", geo.Coordinate{Lat: 0.5, Lon: 2.5}, "00002"},
		{"inside the hole", geo.Coordinate{Lat: 2, Lon: 4}, ""},
		{"open water", geo.Coordinate{Lat: 40, Lon: -70}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			county := ix.Locate(tt.coord)
			if tt.geoid == "" {
				assert.Nil(t, county)
				return
			}
			require.NotNil(t, county)
			assert.Equal(t, tt.geoid, county.GEOID)
		})
	}
}

func TestLoadCountiesMissingFile(t *testing.T) {
	_, err := LoadCounties(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}

func TestLoadUrbanLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"geoid,level\n00001,1\n00002,6\n00003,9\n,2\n"), 0o644))

	levels, err := LoadUrbanLevels(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"00001": "1", "00002": "6"}, levels)
}

func TestLoadUrbanLevelsNoUsableRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels.csv")
	require.NoError(t, os.WriteFile(path, []byte("geoid,level\n00001,zero\n"), 0o644))
	_, err := LoadUrbanLevels(path)
	assert.Error(t, err)
}

func TestLabelUsers(t *testing.T) {
	ix, err := LoadCounties(writeCountyShapefile(t))
	require.NoError(t, err)

	users := map[string]geo.Coordinate{
		"alice": {Lat: 0.5, Lon: 0.5},
		"bob":   {Lat: 3.5, Lon: 5.5},
		"carol": {Lat: 40, Lon: -70},
	}
	levels := map[string]string{"00001": "1", "00002": "6"}

	labels := ix.LabelUsers(users, levels)
	assert.Equal(t, map[string]string{"alice": "1", "bob": "6"}, labels)
}
