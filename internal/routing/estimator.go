// Package routing estimates road distance and travel time between trip endpoints.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dropme-cab/service-rides/internal/domain/trip"
)

const (
	earthRadiusKm = 6371.0

	// fallbackSpeedKmPerMin assumes 30 km/h average urban speed when no
	// routed duration is available.
	fallbackSpeedKmPerMin = 0.5
)

// ErrInvalidCoordinates marks estimate requests with out-of-range positions.
var ErrInvalidCoordinates = eris.New("routing: invalid coordinates")

// Estimator produces a distance and duration estimate between two points.
type Estimator interface {
	Estimate(ctx context.Context, pickup, drop trip.Coordinate) (trip.RouteResult, error)
}

// osrmResponse is the subset of the OSRM route response we consume.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

// Option configures the OSRM estimator.
type Option func(*OSRMEstimator)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(e *OSRMEstimator) {
		e.httpClient = hc
	}
}

// WithLogger sets the logger used for routing diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(e *OSRMEstimator) {
		e.logger = log
	}
}

// OSRMEstimator asks an OSRM server for a driving route and falls back to a
// great-circle estimate when the server is unavailable or returns no route.
type OSRMEstimator struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOSRMEstimator creates an Estimator for the given OSRM base URL.
func NewOSRMEstimator(baseURL string, opts ...Option) *OSRMEstimator {
	e := &OSRMEstimator{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate implements Estimator. A reachable OSRM route yields a routed
// result; any provider failure degrades to the haversine fallback rather
// than an error. Only invalid input coordinates produce an error.
func (e *OSRMEstimator) Estimate(ctx context.Context, pickup, drop trip.Coordinate) (trip.RouteResult, error) {
	if !pickup.Valid() || !drop.Valid() {
		return trip.EmptyRouteResult(), ErrInvalidCoordinates
	}

	result, err := e.route(ctx, pickup, drop)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return trip.EmptyRouteResult(), eris.Wrap(ctx.Err(), "routing: estimate cancelled")
	}

	e.logger.Debug("osrm unavailable, using haversine fallback", zap.Error(err))
	return Fallback(pickup, drop), nil
}

func (e *OSRMEstimator) route(ctx context.Context, pickup, drop trip.Coordinate) (trip.RouteResult, error) {
	// OSRM takes lon,lat pairs.
	reqURL := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		e.baseURL, pickup.Lon, pickup.Lat, drop.Lon, drop.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return trip.EmptyRouteResult(), eris.Wrap(err, "osrm: build request")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return trip.EmptyRouteResult(), eris.Wrap(err, "osrm: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return trip.EmptyRouteResult(), eris.Errorf("osrm: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return trip.EmptyRouteResult(), eris.Wrap(err, "osrm: read body")
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return trip.EmptyRouteResult(), eris.Wrap(err, "osrm: parse response")
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return trip.EmptyRouteResult(), eris.Errorf("osrm: no route (code %q)", parsed.Code)
	}

	route := parsed.Routes[0]
	distanceKm := route.Distance / 1000.0
	durationMin := int(math.Round(route.Duration / 60.0))
	return trip.NewRouteResult(distanceKm, durationMin, trip.RouteSourceRouted), nil
}

// Fallback computes a great-circle estimate with an assumed average speed.
func Fallback(pickup, drop trip.Coordinate) trip.RouteResult {
	distanceKm := Haversine(pickup, drop)
	durationMin := int(math.Round(distanceKm / fallbackSpeedKmPerMin))
	return trip.NewRouteResult(distanceKm, durationMin, trip.RouteSourceFallback)
}

// Haversine returns the great-circle distance between two points in kilometers.
func Haversine(a, b trip.Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * earthRadiusKm
}
