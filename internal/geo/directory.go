// Package geo provides forward and reverse geocoding backed by Nominatim.
package geo

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dropme-cab/service-rides/internal/domain/trip"
)

// ErrLookupFailed marks provider failures: network errors, non-200 statuses
// and malformed payloads. An empty result set is not a failure.
var ErrLookupFailed = eris.New("geo: lookup failed")

// Directory resolves free-text queries and coordinates to address records.
type Directory interface {
	// Search returns up to the configured number of candidate addresses for
	// a free-text query. An empty slice means no matches, not an error.
	Search(ctx context.Context, query string) ([]trip.AddressRecord, error)

	// Reverse resolves a coordinate to the nearest address. The returned
	// record may carry an empty DisplayName when the provider has no label
	// for the position.
	Reverse(ctx context.Context, lat, lon float64) (*trip.AddressRecord, error)
}
