// Package regions resolves coordinates to US counties from a Census TIGER
// county shapefile, for attaching regional labels (urban density) to users
// located by the pipeline.
package regions

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geomt "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/networkdynamics/geoinf/internal/geo"
)

// County is one county polygon with its TIGER attributes.
type County struct {
	GEOID string
	Name  string

	// rings holds every ring of the county as flat XY (lon, lat) pairs.
	// Holes are not distinguished from outer rings; containment uses ring
	// parity, which handles them without winding-order bookkeeping.
	rings [][]float64
	bbox  bounds
}

type bounds struct {
	minX, minY, maxX, maxY float64
}

func (b *bounds) extend(x, y float64) {
	if x < b.minX {
		b.minX = x
	}
	if x > b.maxX {
		b.maxX = x
	}
	if y < b.minY {
		b.minY = y
	}
	if y > b.maxY {
		b.maxY = y
	}
}

func (b *bounds) contains(x, y float64) bool {
	return x >= b.minX && x <= b.maxX && y >= b.minY && y <= b.maxY
}

// Contains reports whether the coordinate falls inside the county.
func (co *County) Contains(c geo.Coordinate) bool {
	if !co.bbox.contains(c.Lon, c.Lat) {
		return false
	}
	point := geomt.Coord{c.Lon, c.Lat}
	inside := 0
	for _, ring := range co.rings {
		if xy.IsPointInRing(geomt.XY, point, ring) {
			inside++
		}
	}
	return inside%2 == 1
}

// Index holds the loaded county set and answers point-in-county queries.
type Index struct {
	counties []County
}

// Len returns the number of loaded counties.
func (ix *Index) Len() int { return len(ix.counties) }

// Locate returns the county containing the coordinate, or nil when the point
// falls outside every loaded county.
func (ix *Index) Locate(c geo.Coordinate) *County {
	for i := range ix.counties {
		if ix.counties[i].Contains(c) {
			return &ix.counties[i]
		}
	}
	return nil
}

// LoadCounties reads a TIGER county shapefile. Records without a GEOID or
// without polygon geometry are skipped and counted; a shapefile yielding no
// counties at all is an error.
func LoadCounties(shpPath string) (*Index, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "regions: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	geoidIdx := fieldIndex(reader, "GEOID")
	nameIdx := fieldIndex(reader, "NAME")
	if geoidIdx < 0 {
		return nil, eris.Errorf("regions: shapefile %s has no GEOID field", shpPath)
	}

	ix := &Index{}
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly.NumParts == 0 || len(poly.Points) == 0 {
			skipped++
			continue
		}

		geoid := strings.TrimSpace(reader.Attribute(geoidIdx))
		if geoid == "" {
			skipped++
			continue
		}
		county := County{GEOID: geoid}
		if nameIdx >= 0 {
			county.Name = strings.TrimSpace(reader.Attribute(nameIdx))
		}

		county.bbox = bounds{
			minX: poly.Points[0].X, maxX: poly.Points[0].X,
			minY: poly.Points[0].Y, maxY: poly.Points[0].Y,
		}
		for i := int32(0); i < poly.NumParts; i++ {
			start := poly.Parts[i]
			end := int32(len(poly.Points))
			if i+1 < poly.NumParts {
				end = poly.Parts[i+1]
			}
			ring := make([]float64, 0, (end-start)*2)
			for j := start; j < end; j++ {
				ring = append(ring, poly.Points[j].X, poly.Points[j].Y)
				county.bbox.extend(poly.Points[j].X, poly.Points[j].Y)
			}
			county.rings = append(county.rings, ring)
		}
		ix.counties = append(ix.counties, county)
	}

	if skipped > 0 {
		zap.L().Debug("regions: skipped shapefile records",
			zap.String("path", shpPath), zap.Int("skipped", skipped))
	}
	if len(ix.counties) == 0 {
		return nil, eris.Errorf("regions: shapefile %s contains no usable counties", shpPath)
	}
	zap.L().Info("county index loaded",
		zap.String("path", shpPath), zap.Int("counties", len(ix.counties)))
	return ix, nil
}

// fieldIndex returns the index of a named dbf field, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
