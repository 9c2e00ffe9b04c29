// Package ipress loads and cleans the IPRESS public health-facility
// registry: a delimited export of unknown encoding whose accented column
// names are frequently mangled in transit.
package ipress

import (
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/geosalud/acceso/internal/ingest"
	"github.com/geosalud/acceso/internal/model"
)

// Business-rule values a facility row must carry to survive cleaning.
const (
	statusActive       = "ACTIVADO"
	conditionInService = "EN FUNCIONAMIENTO"
)

// column groups a canonical field with the header spellings it may appear
// under. The registry is exported with accented headers that arrive either
// clean ("Condición"), mojibake ("CondiciÛn"), or stripped ("Condicion");
// matching is case-insensitive over all known variants.
type column struct {
	field    string
	variants []string
}

var requiredColumns = []column{
	{"code", []string{"código único", "cûdigo ⁄nico", "codigo unico"}},
	{"name", []string{"nombre del establecimiento"}},
	{"ubigeo", []string{"ubigeo"}},
	{"north", []string{"norte"}},
	{"east", []string{"este"}},
	{"department", []string{"departamento"}},
	{"status", []string{"estado"}},
	{"condition", []string{"condición", "condiciûn", "condicion"}},
}

// Load reads the facility registry at path (.csv of unknown encoding, or
// .xlsx) and returns the cleaned canonical table. A missing required column
// yields a *model.SchemaError; zero surviving rows is a valid empty result.
func Load(path string) ([]model.FacilityRecord, error) {
	var table *ingest.Table
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		table, err = ingest.ReadXLSX(path)
	} else {
		table, err = ingest.ReadCSV(path)
	}
	if err != nil {
		return nil, err
	}

	idx, err := resolveColumns(table.Header)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "ipress.loader"))
	log.Info("facility registry parsed",
		zap.String("path", path),
		zap.String("encoding", table.Encoding),
		zap.Int("raw_rows", len(table.Rows)),
	)

	var out []model.FacilityRecord
	var dropped int
	for _, row := range table.Rows {
		rec, ok := cleanRow(row, idx)
		if !ok {
			dropped++
			continue
		}
		out = append(out, rec)
	}

	log.Info("facility registry cleaned",
		zap.Int("kept", len(out)),
		zap.Int("dropped", dropped),
	)
	return out, nil
}

// resolveColumns maps each required canonical field to its header index.
func resolveColumns(header []string) (map[string]int, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	idx := make(map[string]int, len(requiredColumns))
	for _, col := range requiredColumns {
		found := -1
		for i, h := range normalized {
			for _, v := range col.variants {
				if h == v {
					found = i
					break
				}
			}
			if found >= 0 {
				break
			}
		}
		if found < 0 {
			return nil, &model.SchemaError{Source: "ipress", Column: col.variants[0]}
		}
		idx[col.field] = found
	}
	return idx, nil
}

// cleanRow applies the business-rule filters and builds the canonical record.
//
// The registry's NORTE column feeds Longitude and ESTE feeds Latitude. That
// inverts the conventional northing/easting meaning, but it is how the
// upstream source encodes WGS84 degrees; it must not be "fixed" here or all
// downstream geometry shifts.
func cleanRow(row []string, idx map[string]int) (model.FacilityRecord, bool) {
	var zero model.FacilityRecord

	cell := func(field string) string {
		i := idx[field]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	status := cell("status")
	if status != statusActive || cell("condition") != conditionInService {
		return zero, false
	}

	northRaw, eastRaw := cell("north"), cell("east")
	if northRaw == "" || eastRaw == "" {
		return zero, false
	}
	longitude, err := strconv.ParseFloat(northRaw, 64)
	if err != nil {
		return zero, false
	}
	latitude, err := strconv.ParseFloat(eastRaw, 64)
	if err != nil {
		return zero, false
	}
	if !model.InPeruBounds(longitude, latitude) {
		return zero, false
	}

	districtCode, err := strconv.Atoi(cell("ubigeo"))
	if err != nil {
		return zero, false
	}

	return model.FacilityRecord{
		Code:         cell("code"),
		Name:         cell("name"),
		DistrictCode: districtCode,
		Longitude:    longitude,
		Latitude:     latitude,
		Department:   cell("department"),
		Status:       status,
	}, true
}
