// Package geocode defines the reverse-geocoding hook used to attach a
// human-readable address to attendance events. Resolution is strictly
// best-effort: a failed or missing geocoder leaves the address empty and
// never fails the check-in or check-out that requested it.
package geocode

import "context"

// Reverser resolves a coordinate to a human-readable address.
type Reverser interface {
	// Reverse returns an address for the coordinate, or an error if the
	// lookup failed. Callers treat any error as "no address".
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// Noop is a Reverser that never resolves anything. Used when no external
// geocoding service is configured.
type Noop struct{}

func (Noop) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	return "", nil
}
