// Package geo computes the great-circle distance between the depot and the
// event location, and the delivery surcharge derived from it.
package geo

import "math"

const (
	earthRadiusKm = 6371

	// FreeRadiusKm is the delivery radius included in the flat delivery price.
	FreeRadiusKm = 15.0

	// surchargePerKmHT is the effective rate beyond the free radius. The
	// historical tariff decomposed it as 4 sub-units of 0.45; invoicing shows
	// a single distance line, so only the product matters.
	surchargePerKmHT = 4 * 0.45
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// DistanceKm returns the haversine great-circle distance in kilometres,
// assuming a spherical Earth.
func DistanceKm(from, to Point) float64 {
	lat1 := from.Lat * math.Pi / 180
	lat2 := to.Lat * math.Pi / 180
	dLat := (to.Lat - from.Lat) * math.Pi / 180
	dLng := (to.Lng - from.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Surcharge returns the one-time delivery surcharge for a trip of distanceKm.
// The over-threshold distance is rounded to the nearest whole kilometre
// before applying the per-km rate; trips within the free radius cost nothing.
func Surcharge(distanceKm float64) float64 {
	if distanceKm <= FreeRadiusKm {
		return 0
	}
	return math.Round(distanceKm-FreeRadiusKm) * surchargePerKmHT
}
