package main

import (
	"github.com/geosalud/acceso/internal/model"
)

// runSummary is the serialized shape of a pipeline run, shared by the run
// command's export and the API's summary endpoint.
type runSummary struct {
	Facilities       int                          `json:"facilities" yaml:"facilities"`
	Districts        int                          `json:"districts" yaml:"districts"`
	Matched          int                          `json:"matched" yaml:"matched"`
	Centers          int                          `json:"centers" yaml:"centers"`
	DepartmentTotals []model.DepartmentTotal      `json:"department_totals" yaml:"department_totals"`
	Proximity        map[string]*proximitySummary `json:"proximity" yaml:"proximity"`
}

// proximitySummary reports the least and best served population center of one
// department's proximity analysis.
type proximitySummary struct {
	Centers      int           `json:"centers" yaml:"centers"`
	Isolated     centerSummary `json:"isolated" yaml:"isolated"`
	Concentrated centerSummary `json:"concentrated" yaml:"concentrated"`
}

type centerSummary struct {
	Name             string `json:"name" yaml:"name"`
	District         string `json:"district" yaml:"district"`
	FacilitiesWithin int    `json:"facilities_within" yaml:"facilities_within"`
}

func summarize(b *model.Bundle) runSummary {
	s := runSummary{
		Facilities:       len(b.Facilities),
		Districts:        len(b.Districts),
		Matched:          len(b.Joined),
		Centers:          len(b.Centers),
		DepartmentTotals: b.DepartmentTotals,
		Proximity:        make(map[string]*proximitySummary, len(b.Proximity)),
	}
	for dept, result := range b.Proximity {
		if result == nil {
			s.Proximity[dept] = nil
			continue
		}
		s.Proximity[dept] = &proximitySummary{
			Centers:      len(result.Centers),
			Isolated:     toCenterSummary(result.Isolated),
			Concentrated: toCenterSummary(result.Concentrated),
		}
	}
	return s
}

func toCenterSummary(c *model.CenterCount) centerSummary {
	if c == nil {
		return centerSummary{}
	}
	return centerSummary{
		Name:             c.Name,
		District:         c.District,
		FacilitiesWithin: c.FacilitiesWithin,
	}
}
