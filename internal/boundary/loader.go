// Package boundary loads the DISTRITOS administrative-district shapefile
// into the canonical district polygon table.
package boundary

import (
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geosalud/acceso/internal/crs"
	"github.com/geosalud/acceso/internal/geospatial"
	"github.com/geosalud/acceso/internal/model"
)

// Candidate attribute names, checked in order.
var (
	idColumns   = []string{"IDDIST", "UBIGEO"}
	nameColumns = []string{"DISTRITO", "NOMBDIST"}
)

// Load reads the district polygon layer at shpPath. The identifying column
// must be IDDIST or UBIGEO (*model.SchemaError otherwise); rows whose id does
// not coerce to an integer are dropped, duplicate ids keep their first
// occurrence, and invalid boundaries are repaired. A .prj sidecar declaring a
// projected system triggers reprojection to WGS84; absent or geographic
// declarations leave coordinates untouched.
func Load(shpPath string) ([]model.DistrictPolygon, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	log := zap.L().With(zap.String("component", "boundary.loader"))

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToUpper(name)] = i
	}

	idIdx := -1
	for _, col := range idColumns {
		if i, ok := fieldIdx[col]; ok {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, &model.SchemaError{Source: "boundary", Column: strings.Join(idColumns, " or ")}
	}

	nameIdx := -1
	for _, col := range nameColumns {
		if i, ok := fieldIdx[col]; ok {
			nameIdx = i
			break
		}
	}

	unproject := projectionFor(shpPath, log)

	var out []model.DistrictPolygon
	seen := make(map[int]bool)
	var dropped, repaired int

	for reader.Next() {
		_, shape := reader.Shape()

		idRaw := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		code, err := strconv.Atoi(idRaw)
		if err != nil {
			dropped++
			continue
		}
		if seen[code] {
			log.Warn("duplicate district code, keeping first occurrence", zap.Int("code", code))
			continue
		}

		g := geospatial.ShapeToGeom(shape)
		if g == nil {
			dropped++
			continue
		}
		if unproject != nil {
			geospatial.TransformInPlace(g, unproject)
		}
		if !geospatial.IsValid(g) {
			g = geospatial.Repair(g)
			if g == nil {
				dropped++
				continue
			}
			repaired++
		}

		name := ""
		if nameIdx >= 0 {
			name = strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}

		seen[code] = true
		out = append(out, model.DistrictPolygon{
			DistrictCode: code,
			DistrictName: name,
			Boundary:     model.NewGeometry(g),
		})
	}

	log.Info("district boundaries loaded",
		zap.Int("districts", len(out)),
		zap.Int("dropped", dropped),
		zap.Int("repaired", repaired),
	)
	return out, nil
}

// projectionFor inspects the .prj sidecar next to the shapefile. It returns
// an unprojection function when the layer declares UTM zone 18S, and nil when
// the layer is already geographic WGS84 or carries no declaration.
func projectionFor(shpPath string, log *zap.Logger) func(x, y float64) (float64, float64) {
	prjPath := strings.TrimSuffix(shpPath, ".shp") + ".prj"
	data, err := os.ReadFile(prjPath)
	if err != nil {
		log.Debug("no .prj sidecar, assuming WGS84", zap.String("path", prjPath))
		return nil
	}

	wkt := strings.ToUpper(string(data))
	switch {
	case strings.Contains(wkt, "32718") ||
		(strings.Contains(wkt, "UTM") && strings.Contains(wkt, "18S")):
		log.Debug("reprojecting from UTM zone 18S")
		return crs.FromUTM18S

	case strings.Contains(wkt, "WGS_1984") || strings.Contains(wkt, "WGS 84") || strings.Contains(wkt, "WGS84"):
		return nil

	default:
		log.Debug("unrecognized .prj declaration, assuming WGS84",
			zap.String("wkt", strings.TrimSpace(string(data))))
		return nil
	}
}
