package engine

import (
	"github.com/golang/geo/s2"

	"github.com/galois26/eventclash/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * EarthRadiusKm
}

// VenueDistanceKm returns the distance between the venues of two events.
// ok is false when either venue lacks coordinates.
func VenueDistanceKm(a, b model.Event) (km float64, ok bool) {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return 0, false
	}
	lat1, lon1 := a.Coordinates()
	lat2, lon2 := b.Coordinates()
	return HaversineKm(lat1, lon1, lat2, lon2), true
}
