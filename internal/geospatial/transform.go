package geospatial

import "github.com/twpayne/go-geom"

// TransformInPlace applies f to every vertex of g, mutating the geometry.
// Used to unproject whole layers whose source declared a projected system.
func TransformInPlace(g geom.T, f func(x, y float64) (float64, float64)) {
	if g == nil {
		return
	}
	flat := g.FlatCoords()
	stride := g.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		flat[i], flat[i+1] = f(flat[i], flat[i+1])
	}
}
