package trip

import (
	"fmt"
	"math"
)

// RouteSource identifies how a route estimate was obtained.
type RouteSource string

const (
	RouteSourceRouted   RouteSource = "routed"
	RouteSourceFallback RouteSource = "fallback"
	RouteSourceNone     RouteSource = "none"
)

// RouteResult is a distance and duration estimate between two endpoints.
// When Source is RouteSourceNone both numeric fields are nil.
type RouteResult struct {
	DistanceKm  *float64    `json:"distance_km,omitempty"`
	DurationMin *int        `json:"duration_min,omitempty"`
	Source      RouteSource `json:"source"`
}

// NewRouteResult builds a populated estimate, rounding the distance to two
// decimal places.
func NewRouteResult(distanceKm float64, durationMin int, source RouteSource) RouteResult {
	rounded := math.Round(distanceKm*100) / 100
	return RouteResult{
		DistanceKm:  &rounded,
		DurationMin: &durationMin,
		Source:      source,
	}
}

// EmptyRouteResult is the absent estimate.
func EmptyRouteResult() RouteResult {
	return RouteResult{Source: RouteSourceNone}
}

// Empty reports whether no estimate is present.
func (r RouteResult) Empty() bool {
	return r.Source == RouteSourceNone || r.DistanceKm == nil || r.DurationMin == nil
}

// DistanceString formats the distance with two decimals, or "" when absent.
func (r RouteResult) DistanceString() string {
	if r.DistanceKm == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *r.DistanceKm)
}

// DurationString formats the duration in whole minutes, or "" when absent.
func (r RouteResult) DurationString() string {
	if r.DurationMin == nil {
		return ""
	}
	return fmt.Sprintf("%d", *r.DurationMin)
}
