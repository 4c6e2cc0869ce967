package trip

import "math"

// AddressRecord is one normalized geocoder result. The Address map carries
// the provider's raw address components keyed by component name; absent
// components are simply missing, never nil-valued.
type AddressRecord struct {
	DisplayName string            `json:"display_name"`
	Lat         float64           `json:"lat"`
	Lon         float64           `json:"lon"`
	Address     map[string]string `json:"address,omitempty"`
}

// Valid reports whether the record's coordinates are finite and in range.
func (r AddressRecord) Valid() bool {
	return validLatLon(r.Lat, r.Lon)
}

// Coordinate returns the record's position.
func (r AddressRecord) Coordinate() Coordinate {
	return Coordinate{Lat: r.Lat, Lon: r.Lon}
}

// Coordinate is a WGS84 position. Both fields are set together or the value
// is not used at all; endpoints hold a *Coordinate that is nil when unset.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is finite and within range.
func (c Coordinate) Valid() bool {
	return validLatLon(c.Lat, c.Lon)
}

func validLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
