package corpus

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
	geomt "github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"

	"github.com/networkdynamics/geoinf/internal/geo"
)

// Post is a single social-media post. Raw carries the full platform payload
// for methods that need fields the core does not model. Coord is nil for
// posts without a geotag and for posts yielded through a redacted view.
type Post struct {
	ID     string
	UserID string
	Coord  *geo.Coordinate
	Raw    json.RawMessage
}

// stringID accepts either a JSON string or number id and normalizes it to a
// string. Platform exports are inconsistent about which they emit.
type stringID string

func (s *stringID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = stringID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = stringID(n.String())
	return nil
}

// rawPost is the wire shape of one post line. The geo field is a GeoJSON
// Point whose coordinates are ordered [lat, lon] (legacy platform geotag
// order, not GeoJSON [lon, lat]).
type rawPost struct {
	ID     stringID        `json:"id"`
	UserID stringID        `json:"user_id"`
	Geo    json.RawMessage `json:"geo"`
}

// decodePost parses one post payload. parentID is the owning user's id; a
// post carrying a different user_id violates the per-user invariant and is
// reported as malformed.
func decodePost(data json.RawMessage, parentID string) (Post, error) {
	var rp rawPost
	if err := json.Unmarshal(data, &rp); err != nil {
		return Post{}, eris.Wrap(err, "corpus: decode post")
	}

	p := Post{
		ID:     string(rp.ID),
		UserID: parentID,
		Raw:    data,
	}
	if uid := string(rp.UserID); uid != "" && parentID != "" && uid != parentID {
		return Post{}, eris.Errorf("corpus: post %s user_id %s does not match parent user %s", p.ID, uid, parentID)
	}

	if len(rp.Geo) > 0 && !bytes.Equal(bytes.TrimSpace(rp.Geo), []byte("null")) {
		coord, err := decodeGeo(rp.Geo)
		if err != nil {
			return Post{}, err
		}
		p.Coord = coord
	}

	return p, nil
}

// decodeGeo parses the legacy geotag: a GeoJSON Point with [lat, lon] order.
func decodeGeo(data json.RawMessage) (*geo.Coordinate, error) {
	var g geomt.T
	if err := geomjson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrap(err, "corpus: decode geo field")
	}
	pt, ok := g.(*geomt.Point)
	if !ok {
		return nil, eris.Errorf("corpus: geo field is %T, want Point", g)
	}
	coords := pt.Coords()
	if len(coords) < 2 {
		return nil, eris.New("corpus: geo point missing coordinates")
	}
	c := geo.Coordinate{Lat: coords[0], Lon: coords[1]}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// redact returns a copy of the post with all coordinate data stripped,
// including the geo keys inside the raw payload, so a method cannot recover
// the held-out signal by reading Raw.
func (p Post) redact() Post {
	out := p
	out.Coord = nil

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(p.Raw, &fields); err != nil {
		// Raw already passed decodePost; keep the structural fields only.
		out.Raw = nil
		return out
	}
	delete(fields, "geo")
	delete(fields, "coordinates")
	delete(fields, "place")
	if raw, err := json.Marshal(fields); err == nil {
		out.Raw = raw
	} else {
		out.Raw = nil
	}
	return out
}
