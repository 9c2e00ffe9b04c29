// Package geospatial converts shapefile records into go-geom geometries and
// provides the planar operations the pipeline needs: polygon repair,
// point-in-polygon containment, a grid point index, and metric buffering.
package geospatial

import (
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ShapeToGeom converts a go-shp shape to a go-geom geometry with SRID 4326.
// Returns nil for unsupported or empty shapes.
func ShapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)

	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)

	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)

	case *shp.Polygon:
		return polygonToMultiPolygon(s)

	default:
		return nil
	}
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Shapefile parts wind clockwise for outer rings and counter-clockwise for
// holes; parts are grouped accordingly. A hole with no preceding outer ring
// is promoted to its own polygon rather than dropped.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("geospatial: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 { // fewer than 4 vertices cannot close a ring
			zap.L().Debug("geospatial: skipping degenerate ring", zap.Int32("part", i))
			continue
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		isHole := signedRingArea(flat) > 0 // shapefile outer rings are CW (negative area)

		if isHole && current != nil {
			if err := current.Push(ring); err != nil {
				zap.L().Debug("geospatial: skipping malformed hole", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}

		flush()
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(ring); err != nil {
			zap.L().Debug("geospatial: skipping malformed outer ring", zap.Int32("part", i), zap.Error(err))
			current = nil
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedRingArea returns twice the signed shoelace area of a flat XY ring.
// Positive means counter-clockwise winding.
func signedRingArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum
}
