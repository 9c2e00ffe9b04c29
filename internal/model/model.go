// Package model defines the canonical tables produced by the analysis
// pipeline. Every type is an immutable value: loaders build them once per run
// and downstream stages only read them.
package model

// Peru bounding box used to validate facility coordinates (WGS84 degrees).
const (
	PeruMinLatitude  = -18.5
	PeruMaxLatitude  = 0
	PeruMinLongitude = -81.5
	PeruMaxLongitude = -68
)

// InPeruBounds reports whether a WGS84 coordinate falls inside the Peru
// bounding box.
func InPeruBounds(longitude, latitude float64) bool {
	return latitude >= PeruMinLatitude && latitude <= PeruMaxLatitude &&
		longitude >= PeruMinLongitude && longitude <= PeruMaxLongitude
}

// FacilityRecord is one cleaned row of the IPRESS health-facility registry.
//
// Longitude is sourced from the registry's NORTE column and Latitude from
// ESTE. The upstream source swaps the conventional northing/easting meaning
// onto these fields; the swap is preserved exactly because all downstream
// geometry is built on it.
type FacilityRecord struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	DistrictCode int     `json:"district_code"`
	Longitude    float64 `json:"longitude"`
	Latitude     float64 `json:"latitude"`
	Department   string  `json:"department"`
	Status       string  `json:"status"`
}

// DistrictPolygon is one administrative district with its repaired boundary.
type DistrictPolygon struct {
	DistrictCode int      `json:"district_code"`
	DistrictName string   `json:"district_name"`
	Boundary     Geometry `json:"boundary"`
}

// JoinedFacility is a FacilityRecord paired with the attributes of its
// district, matched by district code.
type JoinedFacility struct {
	FacilityRecord
	DistrictName string   `json:"district_name"`
	Boundary     Geometry `json:"boundary"`
}

// DistrictHospitalCount is the per-district facility count. The count table
// always has one row per district polygon; districts with no matched
// facilities carry a zero count.
type DistrictHospitalCount struct {
	DistrictCode  int      `json:"district_code"`
	DistrictName  string   `json:"district_name"`
	Boundary      Geometry `json:"boundary"`
	HospitalCount int      `json:"hospital_count"`
}

// DepartmentTotal is the per-department facility count, ordered descending
// by count with ties broken by department name.
type DepartmentTotal struct {
	Department     string `json:"department"`
	TotalHospitals int    `json:"total_hospitals"`
}

// PopulationCenter is one cleaned row of the CCPP population-center dataset.
// ID may be empty when the source schema exposed no recognizable code column.
type PopulationCenter struct {
	Name       string   `json:"name"`
	Department string   `json:"department"`
	Province   string   `json:"province"`
	District   string   `json:"district"`
	ID         string   `json:"id"`
	Location   Geometry `json:"location"`
}

// CenterCount is one population center with its buffer polygon and the
// number of facilities falling within it.
type CenterCount struct {
	PopulationCenter
	Buffer           Geometry `json:"buffer"`
	FacilitiesWithin int      `json:"facilities_within"`
}

// ProximityResult holds the extrema and the full per-center count table for
// one department. Isolated and Concentrated may reference the same record
// when every center in the department is tied.
type ProximityResult struct {
	Isolated     *CenterCount  `json:"isolated"`
	Concentrated *CenterCount  `json:"concentrated"`
	Centers      []CenterCount `json:"centers"`
}

// Bundle is the full pipeline output handed to presentation collaborators.
// Proximity entries are nil when the population-center stage was unavailable
// or the department analysis produced no result.
type Bundle struct {
	Facilities       []FacilityRecord            `json:"facilities"`
	Districts        []DistrictPolygon           `json:"districts"`
	Joined           []JoinedFacility            `json:"joined"`
	DistrictCounts   []DistrictHospitalCount     `json:"district_counts"`
	DepartmentTotals []DepartmentTotal           `json:"department_totals"`
	Centers          []PopulationCenter          `json:"centers,omitempty"`
	Proximity        map[string]*ProximityResult `json:"proximity"`
}
