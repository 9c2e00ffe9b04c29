package geospatial

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/geosalud/acceso/internal/crs"
)

// bufferSegments is the number of vertices used to approximate a circular
// buffer ring.
const bufferSegments = 64

// BufferMeters returns a circular buffer of the given radius (meters) around
// a WGS84 point. The circle is built in UTM zone 18S so the radius is truly
// metric, then each vertex is unprojected back to WGS84.
func BufferMeters(longitude, latitude, radius float64) *geom.Polygon {
	easting, northing := crs.ToUTM18S(longitude, latitude)

	flat := make([]float64, 0, (bufferSegments+1)*2)
	for i := 0; i < bufferSegments; i++ {
		theta := 2 * math.Pi * float64(i) / bufferSegments
		e := easting + radius*math.Cos(theta)
		n := northing + radius*math.Sin(theta)
		lng, lat := crs.FromUTM18S(e, n)
		flat = append(flat, lng, lat)
	}
	// Close the ring.
	flat = append(flat, flat[0], flat[1])

	p := geom.NewPolygon(geom.XY).SetSRID(4326)
	_ = p.Push(geom.NewLinearRingFlat(geom.XY, flat))
	return p
}
