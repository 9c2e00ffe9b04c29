package geospatial

import (
	"math"

	"github.com/twpayne/go-geom"
)

// defaultCellSize is the grid cell edge in degrees. At Peru's latitudes this
// is roughly 11 km, the same order as the proximity buffers the index is
// queried with.
const defaultCellSize = 0.1

// PointIndex is a uniform-grid spatial index over a fixed point set. It
// exists to make "count points within polygon" queries cheap without a full
// scan; the point set is immutable after construction.
type PointIndex struct {
	cellSize float64
	cells    map[[2]int][]geom.Coord
	size     int
}

// NewPointIndex builds a grid index over the given coordinates.
func NewPointIndex(points []geom.Coord) *PointIndex {
	idx := &PointIndex{
		cellSize: defaultCellSize,
		cells:    make(map[[2]int][]geom.Coord),
	}
	for _, p := range points {
		key := idx.cellOf(p[0], p[1])
		idx.cells[key] = append(idx.cells[key], p)
		idx.size++
	}
	return idx
}

// Len returns the number of indexed points.
func (idx *PointIndex) Len() int {
	return idx.size
}

// CountWithin counts indexed points strictly within the polygon or
// multipolygon g. Candidate points come from the grid cells overlapping the
// geometry's bounding box; each candidate is verified with an exact
// point-in-polygon test.
func (idx *PointIndex) CountWithin(g geom.T) int {
	if g == nil || idx.size == 0 {
		return 0
	}

	b := g.Bounds()
	minCol, minRow := idx.cell(b.Min(0), b.Min(1))
	maxCol, maxRow := idx.cell(b.Max(0), b.Max(1))

	count := 0
	for col := minCol; col <= maxCol; col++ {
		for row := minRow; row <= maxRow; row++ {
			for _, p := range idx.cells[[2]int{col, row}] {
				if Contains(g, p) {
					count++
				}
			}
		}
	}
	return count
}

func (idx *PointIndex) cellOf(x, y float64) [2]int {
	col, row := idx.cell(x, y)
	return [2]int{col, row}
}

func (idx *PointIndex) cell(x, y float64) (int, int) {
	return int(math.Floor(x / idx.cellSize)), int(math.Floor(y / idx.cellSize))
}
