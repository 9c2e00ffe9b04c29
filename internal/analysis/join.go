// Package analysis implements the statistical core of the pipeline: the
// facility/district key join, per-district and per-department aggregation,
// and the buffer-based proximity analysis.
package analysis

import (
	"sort"

	"go.uber.org/zap"

	"github.com/geosalud/acceso/internal/model"
)

// Join inner-joins facility records to district polygons by district code.
// This is a pure equality join: the boundary geometry is carried onto the
// joined row as an attribute, never used as a join predicate (facilities are
// trusted to report their own district code). Facilities whose code has no
// polygon, and polygons with no facilities, simply do not produce joined
// rows. An empty result is valid.
func Join(facilities []model.FacilityRecord, districts []model.DistrictPolygon) []model.JoinedFacility {
	byCode := make(map[int]*model.DistrictPolygon, len(districts))
	for i := range districts {
		byCode[districts[i].DistrictCode] = &districts[i]
	}

	var out []model.JoinedFacility
	for _, f := range facilities {
		d, ok := byCode[f.DistrictCode]
		if !ok {
			continue
		}
		out = append(out, model.JoinedFacility{
			FacilityRecord: f,
			DistrictName:   d.DistrictName,
			Boundary:       d.Boundary,
		})
	}

	zap.L().Debug("facility/district join complete",
		zap.Int("facilities", len(facilities)),
		zap.Int("districts", len(districts)),
		zap.Int("joined", len(out)),
	)
	return out
}

// FacilityPoints projects the joined table back to plain facility records.
// The proximity analysis counts these, not the raw facility table, so a
// facility whose district code matched no boundary never lands in a buffer.
func FacilityPoints(joined []model.JoinedFacility) []model.FacilityRecord {
	out := make([]model.FacilityRecord, len(joined))
	for i, j := range joined {
		out[i] = j.FacilityRecord
	}
	return out
}

// DistrictCounts aggregates joined facilities per district and left-joins the
// counts back onto the full polygon table. Every district polygon produces
// exactly one output row; districts with no matched facilities carry a zero
// count. This is the basis of the "districts without hospitals" analysis, so
// districts are never dropped.
func DistrictCounts(joined []model.JoinedFacility, districts []model.DistrictPolygon) []model.DistrictHospitalCount {
	perDistrict := make(map[int]int)
	for _, j := range joined {
		perDistrict[j.DistrictCode]++
	}

	out := make([]model.DistrictHospitalCount, 0, len(districts))
	for _, d := range districts {
		out = append(out, model.DistrictHospitalCount{
			DistrictCode:  d.DistrictCode,
			DistrictName:  d.DistrictName,
			Boundary:      d.Boundary,
			HospitalCount: perDistrict[d.DistrictCode],
		})
	}
	return out
}

// DepartmentTotals aggregates joined facilities per department, ordered by
// count descending with ties broken by department name so the ordering is
// deterministic.
func DepartmentTotals(joined []model.JoinedFacility) []model.DepartmentTotal {
	perDept := make(map[string]int)
	for _, j := range joined {
		perDept[j.Department]++
	}

	out := make([]model.DepartmentTotal, 0, len(perDept))
	for dept, total := range perDept {
		out = append(out, model.DepartmentTotal{Department: dept, TotalHospitals: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalHospitals != out[j].TotalHospitals {
			return out[i].TotalHospitals > out[j].TotalHospitals
		}
		return out[i].Department < out[j].Department
	})
	return out
}
