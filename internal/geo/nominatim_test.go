package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPayload = `[
	{
		"display_name": "MG Road, Bengaluru, Karnataka, India",
		"lat": "12.9758",
		"lon": "77.6045",
		"address": {"city": "Bengaluru", "state": "Karnataka", "country_code": "in"}
	},
	{
		"display_name": "Broken Entry",
		"lat": "not-a-number",
		"lon": "77.0",
		"address": {}
	},
	{
		"display_name": "MG Road, Pune, Maharashtra, India",
		"lat": "18.5196",
		"lon": "73.8554",
		"address": {"city": "Pune", "state": "Maharashtra", "country_code": "in"}
	}
]`

func newTestDirectory(t *testing.T, handler http.HandlerFunc) *NominatimDirectory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewNominatimDirectory(srv.URL,
		WithRateLimit(1000),
		WithUserAgent("rides-test/1.0"),
	)
}

func TestSearchParsesAndSkipsInvalidEntries(t *testing.T) {
	var gotQuery, gotAgent string
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotAgent = r.Header.Get("User-Agent")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		w.Write([]byte(searchPayload)) //nolint:errcheck
	})

	records, err := dir.Search(context.Background(), "mg road")
	require.NoError(t, err)
	assert.Equal(t, "mg road", gotQuery)
	assert.Equal(t, "rides-test/1.0", gotAgent)

	require.Len(t, records, 2)
	assert.Equal(t, "MG Road, Bengaluru, Karnataka, India", records[0].DisplayName)
	assert.InDelta(t, 12.9758, records[0].Lat, 1e-9)
	assert.Equal(t, "Bengaluru", records[0].Address["city"])
	assert.Equal(t, "MG Road, Pune, Maharashtra, India", records[1].DisplayName)
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`)) //nolint:errcheck
	})

	records, err := dir.Search(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearchProviderFailure(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := dir.Search(context.Background(), "mg road")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestSearchMalformedBody(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected": "object"}`)) //nolint:errcheck
	})

	_, err := dir.Search(context.Background(), "mg road")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestReverse(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "12.9758", r.URL.Query().Get("lat"))
		assert.Equal(t, "77.6045", r.URL.Query().Get("lon"))
		w.Write([]byte(`{
			"display_name": "MG Road, Bengaluru, Karnataka, India",
			"lat": "12.97581",
			"lon": "77.60451",
			"address": {"city": "Bengaluru", "state": "Karnataka"}
		}`)) //nolint:errcheck
	})

	rec, err := dir.Reverse(context.Background(), 12.9758, 77.6045)
	require.NoError(t, err)
	assert.Equal(t, "MG Road, Bengaluru, Karnataka, India", rec.DisplayName)
	assert.Equal(t, "Bengaluru", rec.Address["city"])
}

func TestReverseWithoutCoordinatesKeepsQueryPoint(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name": "Somewhere", "address": {}}`)) //nolint:errcheck
	})

	rec, err := dir.Reverse(context.Background(), 12.5, 77.5)
	require.NoError(t, err)
	assert.Equal(t, "Somewhere", rec.DisplayName)
	assert.InDelta(t, 12.5, rec.Lat, 1e-9)
	assert.InDelta(t, 77.5, rec.Lon, 1e-9)
}
