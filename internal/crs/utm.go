// Package crs converts coordinates between geographic WGS84 (EPSG:4326) and
// UTM zone 18S (EPSG:32718), the projected system used for metric buffering
// over Peru. The conversion is the standard truncated transverse Mercator
// series (Snyder, "Map Projections: A Working Manual"), accurate to well
// under a meter inside the zone.
package crs

import "math"

// WGS84 ellipsoid and UTM parameters.
const (
	semiMajor  = 6378137.0
	flattening = 1.0 / 298.257223563

	scaleFactor   = 0.9996
	falseEasting  = 500000.0
	falseNorthing = 10000000.0 // southern hemisphere

	// Zone 18 central meridian.
	centralMeridianDeg = -75.0
)

var (
	e2  = flattening * (2 - flattening) // first eccentricity squared
	e4  = e2 * e2
	e6  = e4 * e2
	ep2 = e2 / (1 - e2) // second eccentricity squared
	e1  = (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
)

// ToUTM18S projects a WGS84 longitude/latitude (degrees) to UTM zone 18S
// easting/northing (meters).
func ToUTM18S(longitude, latitude float64) (easting, northing float64) {
	phi := latitude * math.Pi / 180
	lambda := (longitude - centralMeridianDeg) * math.Pi / 180

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := semiMajor / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := cosPhi * lambda

	m := meridionalArc(phi)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	easting = falseEasting + scaleFactor*n*(a+
		(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*ep2)*a5/120)

	northing = falseNorthing + scaleFactor*(m+n*tanPhi*(a2/2+
		(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*ep2)*a6/720))

	return easting, northing
}

// FromUTM18S unprojects UTM zone 18S easting/northing (meters) back to WGS84
// longitude/latitude (degrees).
func FromUTM18S(easting, northing float64) (longitude, latitude float64) {
	x := easting - falseEasting
	y := northing - falseNorthing

	m := y / scaleFactor
	mu := m / (semiMajor * (1 - e2/4 - 3*e4/64 - 5*e6/256))

	// Footpoint latitude.
	phi1 := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := semiMajor / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := semiMajor * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := x / (n1 * scaleFactor)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	phi := phi1 - (n1*tanPhi1/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)

	lambda := (d -
		(1+2*t1+c1)*d3/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120) / cosPhi1

	latitude = phi * 180 / math.Pi
	longitude = centralMeridianDeg + lambda*180/math.Pi
	return longitude, latitude
}

// meridionalArc returns the distance along the meridian from the equator to
// latitude phi (radians).
func meridionalArc(phi float64) float64 {
	return semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}
