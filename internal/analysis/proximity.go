package analysis

import (
	"strings"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/geosalud/acceso/internal/geospatial"
	"github.com/geosalud/acceso/internal/model"
)

// DefaultRadiusMeters is the buffer radius of the accessibility analysis.
const DefaultRadiusMeters = 10000

// Proximity buffers each population center of the named department by
// radius meters and counts facilities within each buffer. The buffer is built
// in UTM zone 18S so the radius is metric, then compared against the facility
// points in WGS84 — both sides share the reference system at comparison time.
// Returns nil when no center matches the department (case-insensitive) or
// either input is empty; that is "no result", not an error.
func Proximity(centers []model.PopulationCenter, facilities []model.FacilityRecord, department string, radius float64) *model.ProximityResult {
	if len(centers) == 0 || len(facilities) == 0 {
		return nil
	}
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}

	points := make([]geom.Coord, 0, len(facilities))
	for _, f := range facilities {
		points = append(points, geom.Coord{f.Longitude, f.Latitude})
	}
	index := geospatial.NewPointIndex(points)

	var counts []model.CenterCount
	for _, c := range centers {
		if !strings.EqualFold(c.Department, department) {
			continue
		}
		pt, ok := c.Location.T.(*geom.Point)
		if !ok {
			continue
		}

		buffer := geospatial.BufferMeters(pt.X(), pt.Y(), radius)
		counts = append(counts, model.CenterCount{
			PopulationCenter: c,
			Buffer:           model.NewGeometry(buffer),
			FacilitiesWithin: index.CountWithin(buffer),
		})
	}
	if len(counts) == 0 {
		zap.L().Info("no population centers matched department",
			zap.String("department", department))
		return nil
	}

	// First-index tie break keeps the selection deterministic. With a single
	// center both extrema reference the same record, which is permitted.
	minIdx, maxIdx := 0, 0
	for i, cc := range counts {
		if cc.FacilitiesWithin < counts[minIdx].FacilitiesWithin {
			minIdx = i
		}
		if cc.FacilitiesWithin > counts[maxIdx].FacilitiesWithin {
			maxIdx = i
		}
	}

	zap.L().Info("proximity analysis complete",
		zap.String("department", department),
		zap.Int("centers", len(counts)),
		zap.Int("min_facilities", counts[minIdx].FacilitiesWithin),
		zap.Int("max_facilities", counts[maxIdx].FacilitiesWithin),
	)

	return &model.ProximityResult{
		Isolated:     &counts[minIdx],
		Concentrated: &counts[maxIdx],
		Centers:      counts,
	}
}
