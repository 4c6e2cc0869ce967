package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dropme-cab/service-rides/internal/domain/trip"
)

// nominatimPlace is one entry of a Nominatim JSON response. Coordinates are
// returned as strings by the API.
type nominatimPlace struct {
	DisplayName string            `json:"display_name"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Address     map[string]string `json:"address"`
}

// Option configures the Nominatim directory.
type Option func(*NominatimDirectory)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *NominatimDirectory) {
		d.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent on every request. Nominatim's
// usage policy requires an identifying agent.
func WithUserAgent(ua string) Option {
	return func(d *NominatimDirectory) {
		d.userAgent = ua
	}
}

// WithMaxResults caps the number of search results requested.
func WithMaxResults(n int) Option {
	return func(d *NominatimDirectory) {
		if n > 0 {
			d.maxResults = n
		}
	}
}

// WithRateLimit sets the requests-per-second limit for provider calls.
func WithRateLimit(rps float64) Option {
	return func(d *NominatimDirectory) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(d *NominatimDirectory) {
		d.logger = log
	}
}

// NominatimDirectory is a Directory backed by a Nominatim instance.
type NominatimDirectory struct {
	baseURL    string
	userAgent  string
	maxResults int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewNominatimDirectory creates a Directory for the given Nominatim base URL.
func NewNominatimDirectory(baseURL string, opts ...Option) *NominatimDirectory {
	d := &NominatimDirectory{
		baseURL:    baseURL,
		userAgent:  "DropMeCab/1.0",
		maxResults: 5,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(1, 1), // Nominatim usage policy: 1 req/s
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search implements Directory.
func (d *NominatimDirectory) Search(ctx context.Context, query string) ([]trip.AddressRecord, error) {
	params := url.Values{
		"format":         {"json"},
		"q":              {query},
		"limit":          {strconv.Itoa(d.maxResults)},
		"addressdetails": {"1"},
	}

	body, err := d.get(ctx, "/search", params)
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(ErrLookupFailed, "nominatim search: parse response")
	}

	records := make([]trip.AddressRecord, 0, len(places))
	for _, p := range places {
		rec, ok := d.toRecord(p)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Reverse implements Directory.
func (d *NominatimDirectory) Reverse(ctx context.Context, lat, lon float64) (*trip.AddressRecord, error) {
	params := url.Values{
		"format": {"jsonv2"},
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
	}

	body, err := d.get(ctx, "/reverse", params)
	if err != nil {
		return nil, err
	}

	var place nominatimPlace
	if err := json.Unmarshal(body, &place); err != nil {
		return nil, eris.Wrap(ErrLookupFailed, "nominatim reverse: parse response")
	}

	// Reverse responses may omit coordinates; fall back to the query point.
	rec, ok := d.toRecord(place)
	if !ok {
		rec = trip.AddressRecord{
			DisplayName: place.DisplayName,
			Lat:         lat,
			Lon:         lon,
			Address:     place.Address,
		}
	}
	return &rec, nil
}

func (d *NominatimDirectory) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	reqURL := d.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Warn("nominatim request failed", zap.String("path", path), zap.Error(err))
		return nil, eris.Wrap(ErrLookupFailed, "nominatim: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		d.logger.Warn("nominatim returned non-200",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, eris.Wrap(ErrLookupFailed, fmt.Sprintf("nominatim: status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(ErrLookupFailed, "nominatim: read body")
	}
	return body, nil
}

// toRecord converts a raw place, rejecting entries with unparseable or
// out-of-range coordinates.
func (d *NominatimDirectory) toRecord(p nominatimPlace) (trip.AddressRecord, bool) {
	lat, latErr := strconv.ParseFloat(p.Lat, 64)
	lon, lonErr := strconv.ParseFloat(p.Lon, 64)
	if latErr != nil || lonErr != nil {
		return trip.AddressRecord{}, false
	}

	rec := trip.AddressRecord{
		DisplayName: p.DisplayName,
		Lat:         lat,
		Lon:         lon,
		Address:     p.Address,
	}
	if !rec.Valid() {
		return trip.AddressRecord{}, false
	}
	return rec, true
}
