/*
Package geo implements the geofence check used for officer attendance.

PURPOSE:
  Decides whether a reported device position lies within an institution's
  attendance radius, and by how much it misses. Distance is proper
  great-circle (haversine) distance - attendance radii are small, but
  reported positions are not, and a flat-earth approximation drifts badly
  once a stray GPS fix lands kilometers away.

SEMANTICS:
  within == distance <= radius. The boundary is inclusive: a position
  exactly on the radius validates.

SEE ALSO:
  - attendance: persists the distance and validated flag on each record
*/
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two
// coordinates.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// =============================================================================
// FENCE - An institution's attendance boundary
// =============================================================================

// Fence is a circular geofence around a registered coordinate.
type Fence struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
}

// Check returns the distance from the fence center to the reported
// position, and whether the position is within the fence.
func (f Fence) Check(lat, lng float64) (distance float64, within bool) {
	distance = Distance(f.Lat, f.Lng, lat, lng)
	return distance, distance <= f.RadiusMeters
}

// ValidCoordinate reports whether lat/lng are in range.
func ValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
