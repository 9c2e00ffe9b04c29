package geospatial

import (
	"math"

	"github.com/twpayne/go-geom"
)

// IsValid reports whether a polygon or multipolygon is usable: every ring is
// closed, has at least four vertices, and contains no NaN or infinite
// coordinates. Points are valid when their coordinates are finite.
func IsValid(g geom.T) bool {
	switch t := g.(type) {
	case *geom.Point:
		return finite(t.FlatCoords())

	case *geom.Polygon:
		return polygonValid(t)

	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return false
		}
		for i := 0; i < t.NumPolygons(); i++ {
			if !polygonValid(t.Polygon(i)) {
				return false
			}
		}
		return true

	default:
		return false
	}
}

// Repair normalizes a polygon or multipolygon in the way a zero-distance
// buffer does: consecutive duplicate vertices are collapsed, unclosed rings
// are closed, and rings left with fewer than four vertices are dropped.
// Returns nil when nothing repairable remains.
func Repair(g geom.T) geom.T {
	switch t := g.(type) {
	case *geom.Polygon:
		return repairPolygon(t)

	case *geom.MultiPolygon:
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(t.SRID())
		for i := 0; i < t.NumPolygons(); i++ {
			if p := repairPolygon(t.Polygon(i)); p != nil {
				_ = mp.Push(p)
			}
		}
		if mp.NumPolygons() == 0 {
			return nil
		}
		return mp

	default:
		return g
	}
}

func polygonValid(p *geom.Polygon) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	for i := 0; i < p.NumLinearRings(); i++ {
		flat := p.LinearRing(i).FlatCoords()
		if !finite(flat) {
			return false
		}
		if len(flat) < 8 {
			return false
		}
		n := len(flat)
		if flat[0] != flat[n-2] || flat[1] != flat[n-1] {
			return false
		}
	}
	return true
}

func repairPolygon(p *geom.Polygon) *geom.Polygon {
	out := geom.NewPolygon(geom.XY).SetSRID(p.SRID())
	for i := 0; i < p.NumLinearRings(); i++ {
		flat := repairRing(p.LinearRing(i).FlatCoords())
		if flat == nil {
			continue
		}
		if err := out.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			continue
		}
	}
	if out.NumLinearRings() == 0 {
		return nil
	}
	return out
}

// repairRing collapses consecutive duplicate vertices, closes the ring, and
// rejects rings that cannot enclose area. NaN coordinates are unrepairable.
func repairRing(flat []float64) []float64 {
	if !finite(flat) || len(flat) < 6 {
		return nil
	}

	out := make([]float64, 0, len(flat))
	for i := 0; i+1 < len(flat); i += 2 {
		x, y := flat[i], flat[i+1]
		if len(out) >= 2 && out[len(out)-2] == x && out[len(out)-1] == y {
			continue
		}
		out = append(out, x, y)
	}

	// Close the ring if the source left it open.
	if len(out) >= 6 && (out[0] != out[len(out)-2] || out[1] != out[len(out)-1]) {
		out = append(out, out[0], out[1])
	}

	if len(out) < 8 {
		return nil
	}
	return out
}

func finite(flat []float64) bool {
	for _, v := range flat {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
