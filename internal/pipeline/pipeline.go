// Package pipeline sequences the loaders and analyses into the single
// read/compute pass that produces the output bundle, and wraps that pass in
// a fingerprint-keyed cache.
package pipeline

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geosalud/acceso/internal/analysis"
	"github.com/geosalud/acceso/internal/boundary"
	"github.com/geosalud/acceso/internal/ccpp"
	"github.com/geosalud/acceso/internal/config"
	"github.com/geosalud/acceso/internal/ipress"
	"github.com/geosalud/acceso/internal/model"
)

// LoadAll runs the full pipeline once: validate required inputs, load and
// clean facilities, load boundaries, join, aggregate, then the optional
// population-center stage and per-department proximity analyses.
//
// Failure policy: a missing required file or a failed required stage aborts
// with no partial bundle; an empty join is also fatal because nothing
// meaningful can follow it. The population-center stage and each proximity
// analysis may independently fail or be unavailable — their entries stay nil
// and the pipeline completes.
func LoadAll(ctx context.Context, cfg *config.Config) (*model.Bundle, error) {
	log := zap.L().With(zap.String("component", "pipeline"))

	for _, path := range []string{cfg.Data.FacilityPath(), cfg.Data.BoundaryPath()} {
		if _, err := os.Stat(path); err != nil {
			return nil, &model.MissingFileError{Path: path}
		}
	}

	log.Info("loading facility registry")
	facilities, err := ipress.Load(cfg.Data.FacilityPath())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cancelled")
	}

	log.Info("loading district boundaries")
	districts, err := boundary.Load(cfg.Data.BoundaryPath())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cancelled")
	}

	joined := analysis.Join(facilities, districts)
	if len(joined) == 0 {
		return nil, eris.New("pipeline: facility/district join produced no rows")
	}

	counts := analysis.DistrictCounts(joined, districts)
	totals := analysis.DepartmentTotals(joined)

	centers, err := ccpp.Load(cfg.Data.CentersPath())
	if err != nil {
		// Optional stage: an unparsable archive downgrades to "unavailable".
		log.Warn("population-center stage failed, proximity analyses skipped", zap.Error(err))
		centers = nil
	}

	facilityPoints := analysis.FacilityPoints(joined)

	proximity := make(map[string]*model.ProximityResult, len(cfg.Analysis.Departments))
	for _, dept := range cfg.Analysis.Departments {
		if centers == nil {
			proximity[dept] = nil
			continue
		}
		proximity[dept] = analysis.Proximity(centers, facilityPoints, dept, cfg.Analysis.RadiusMeters)
	}

	log.Info("pipeline complete",
		zap.Int("facilities", len(facilities)),
		zap.Int("districts", len(districts)),
		zap.Int("joined", len(joined)),
		zap.Int("centers", len(centers)),
	)

	return &model.Bundle{
		Facilities:       facilities,
		Districts:        districts,
		Joined:           joined,
		DistrictCounts:   counts,
		DepartmentTotals: totals,
		Centers:          centers,
		Proximity:        proximity,
	}, nil
}
