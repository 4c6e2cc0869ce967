package trip

import "strings"

// RideCategory is the kind of ride the passenger requested.
type RideCategory string

const (
	CategoryDaily      RideCategory = "daily"
	CategoryOutstation RideCategory = "outstation"
	CategoryRental     RideCategory = "rental"
)

// NormalizeCategory lowercases and trims a raw category name. The legacy
// aliases "ride-now" and "ride_now" map to daily.
func NormalizeCategory(raw string) RideCategory {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "ride-now" || v == "ride_now" {
		return CategoryDaily
	}
	return RideCategory(v)
}

// IsValid returns true if the category is one the service recognizes.
func (c RideCategory) IsValid() bool {
	switch c {
	case CategoryDaily, CategoryOutstation, CategoryRental:
		return true
	}
	return false
}

// String returns the string representation of the category.
func (c RideCategory) String() string {
	return string(c)
}
