package model

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Geometry wraps a go-geom geometry so that every table in the bundle is
// JSON-serializable end to end (HTTP responses, file exports, and the
// SQLite bundle cache all round-trip through encoding/json).
type Geometry struct {
	T geom.T
}

// NewGeometry wraps g. A nil geometry is allowed and marshals as JSON null.
func NewGeometry(g geom.T) Geometry {
	return Geometry{T: g}
}

// IsZero reports whether no geometry is present.
func (g Geometry) IsZero() bool {
	return g.T == nil
}

// MarshalJSON encodes the geometry as GeoJSON.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.T == nil {
		return []byte("null"), nil
	}
	data, err := geojson.Marshal(g.T)
	if err != nil {
		return nil, eris.Wrap(err, "model: marshal geometry")
	}
	return data, nil
}

// UnmarshalJSON decodes a GeoJSON geometry. JSON null yields a zero Geometry.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		g.T = nil
		return nil
	}
	var t geom.T
	if err := geojson.Unmarshal(data, &t); err != nil {
		return eris.Wrap(err, "model: unmarshal geometry")
	}
	g.T = t
	return nil
}
