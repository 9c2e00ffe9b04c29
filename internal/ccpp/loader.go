// Package ccpp loads the CCPP population-center archive: a zipped point
// shapefile whose attribute names vary between releases. Column mapping is a
// best-effort substring heuristic pinned to the known source schemas; keep it
// isolated here and do not let its guesses leak into other loaders.
package ccpp

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/geosalud/acceso/internal/crs"
	"github.com/geosalud/acceso/internal/geospatial"
	"github.com/geosalud/acceso/internal/ingest"
	"github.com/geosalud/acceso/internal/model"
)

// field targets in mapping priority order; for each source column the first
// matching target wins.
var mappingOrder = []struct {
	field    string
	keywords []string
}{
	{"name", []string{"poblad"}},
	{"department", []string{"dep", "departamento"}},
	{"province", []string{"prov", "provincia"}},
	{"district", []string{"dist", "distrito"}},
	{"id", []string{"digo", "codigo", "cod"}},
}

// Load reads the population-center archive at zipPath. A missing archive is
// not an error: the stage reports unavailable with a nil table. The archive
// is extracted to a scratch directory, its point shapefile located, columns
// mapped heuristically, rows deduplicated by the mapped id, and only valid
// point geometries kept.
func Load(zipPath string) ([]model.PopulationCenter, error) {
	if _, err := os.Stat(zipPath); err != nil {
		zap.L().Info("population-center archive not present, skipping stage",
			zap.String("path", zipPath))
		return nil, nil
	}

	scratch, err := os.MkdirTemp("", "ccpp-*")
	if err != nil {
		return nil, eris.Wrap(err, "ccpp: create scratch dir")
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	if _, err := ingest.ExtractZIP(zipPath, scratch); err != nil {
		return nil, err
	}
	shpPath, err := ingest.FindByExt(scratch, ".shp")
	if err != nil {
		return nil, err
	}

	return loadShapefile(shpPath)
}

func loadShapefile(shpPath string) ([]model.PopulationCenter, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ccpp: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	log := zap.L().With(zap.String("component", "ccpp.loader"))

	fields := reader.Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = strings.TrimRight(f.String(), "\x00")
	}
	mapping := mapColumns(columns, log)

	unproject := projectionFor(shpPath, log)

	var out []model.PopulationCenter
	seenIDs := make(map[string]bool)
	var invalid, duplicates int

	for reader.Next() {
		_, shape := reader.Shape()

		attr := func(field string) string {
			i, ok := mapping[field]
			if !ok {
				return ""
			}
			return strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}

		id := attr("id")
		if id != "" {
			if seenIDs[id] {
				duplicates++
				continue
			}
			seenIDs[id] = true
		}

		g := geospatial.ShapeToGeom(shape)
		pt, ok := g.(*geom.Point)
		if !ok || !geospatial.IsValid(pt) {
			invalid++
			continue
		}
		if unproject != nil {
			geospatial.TransformInPlace(pt, unproject)
		}

		out = append(out, model.PopulationCenter{
			Name:       attr("name"),
			Department: attr("department"),
			Province:   attr("province"),
			District:   attr("district"),
			ID:         id,
			Location:   model.NewGeometry(pt),
		})
	}

	log.Info("population centers loaded",
		zap.Int("centers", len(out)),
		zap.Int("invalid", invalid),
		zap.Int("duplicates", duplicates),
	)
	return out, nil
}

// mapColumns classifies each source column into a canonical field by
// case-insensitive substring match, first match wins per column. Columns
// matching nothing are reported and left out of the mapping; a target field
// already claimed by an earlier column is not reassigned.
func mapColumns(columns []string, log *zap.Logger) map[string]int {
	mapping := make(map[string]int, len(mappingOrder))

	for i, col := range columns {
		lower := strings.ToLower(col)
		matched := false
		for _, target := range mappingOrder {
			if _, taken := mapping[target.field]; taken {
				continue
			}
			for _, kw := range target.keywords {
				if strings.Contains(lower, kw) {
					mapping[target.field] = i
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if !matched {
			log.Warn("population-center column left unmapped", zap.String("column", col))
		}
	}
	return mapping
}

func projectionFor(shpPath string, log *zap.Logger) func(x, y float64) (float64, float64) {
	prjPath := strings.TrimSuffix(shpPath, ".shp") + ".prj"
	data, err := os.ReadFile(prjPath)
	if err != nil {
		return nil
	}
	wkt := strings.ToUpper(string(data))
	if strings.Contains(wkt, "32718") || (strings.Contains(wkt, "UTM") && strings.Contains(wkt, "18S")) {
		log.Debug("reprojecting population centers from UTM zone 18S")
		return crs.FromUTM18S
	}
	return nil
}
