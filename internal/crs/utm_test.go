package crs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUTM18S_Lima(t *testing.T) {
	// Plaza Mayor de Lima, well inside zone 18S.
	easting, northing := ToUTM18S(-77.0428, -12.0464)

	// Zone 18S places Lima a bit west of the central meridian with a
	// northing just under 10,000,000 (southern hemisphere false northing).
	assert.InDelta(t, 277000, easting, 2000)
	assert.InDelta(t, 8667000, northing, 2000)
}

func TestRoundTrip(t *testing.T) {
	points := []struct {
		name     string
		lng, lat float64
	}{
		{"lima", -77.0428, -12.0464},
		{"iquitos", -73.2538, -3.7437},
		{"central meridian", -75.0, -10.0},
		{"near equator", -74.5, -0.5},
		{"southern edge", -70.5, -18.0},
	}

	for _, p := range points {
		t.Run(p.name, func(t *testing.T) {
			e, n := ToUTM18S(p.lng, p.lat)
			lng, lat := FromUTM18S(e, n)
			require.InDelta(t, p.lng, lng, 1e-7)
			require.InDelta(t, p.lat, lat, 1e-7)
		})
	}
}

func TestMetricDistance(t *testing.T) {
	// Two points 0.1 degrees of latitude apart are roughly 11.06 km apart
	// on the WGS84 ellipsoid near Lima's latitude.
	e1, n1 := ToUTM18S(-77.0, -12.0)
	e2, n2 := ToUTM18S(-77.0, -12.1)

	dist := math.Hypot(e2-e1, n2-n1)
	assert.InDelta(t, 11060, dist, 100)
}

func TestSouthernHemisphereNorthing(t *testing.T) {
	// All of Peru is south of the equator, so northings stay below the
	// 10,000,000 false northing.
	_, n := ToUTM18S(-75.0, -0.01)
	assert.Less(t, n, falseNorthing)
	assert.Greater(t, n, falseNorthing-3000)
}
