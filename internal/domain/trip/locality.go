package trip

import "strings"

// LocalityProfile is the administrative classification of a resolved address.
type LocalityProfile struct {
	City        string `json:"city,omitempty"`
	District    string `json:"district,omitempty"`
	State       string `json:"state,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// PrimaryLocality is the city when present, otherwise the district.
func (p LocalityProfile) PrimaryLocality() string {
	if p.City != "" {
		return p.City
	}
	return p.District
}

// Complete reports whether the profile carries enough information for a
// service-area decision: a primary locality and a state.
func (p LocalityProfile) Complete() bool {
	return p.PrimaryLocality() != "" && p.State != ""
}

// Component precedence for each profile field, most specific first.
var (
	cityComponents     = []string{"city", "town", "village", "hamlet", "municipality", "suburb"}
	districtComponents = []string{"state_district", "county", "district"}
	stateComponents    = []string{"state", "province", "region"}
)

// Classify extracts a LocalityProfile from a geocoder address record.
// Missing components yield empty fields, never an error.
func Classify(rec AddressRecord) LocalityProfile {
	return LocalityProfile{
		City:        firstComponent(rec.Address, cityComponents),
		District:    firstComponent(rec.Address, districtComponents),
		State:       firstComponent(rec.Address, stateComponents),
		CountryCode: strings.ToLower(strings.TrimSpace(rec.Address["country_code"])),
	}
}

func firstComponent(address map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(address[k]); v != "" {
			return v
		}
	}
	return ""
}

// AreaDecision values for SameServiceArea.
type AreaDecision string

const (
	AreaAllowed AreaDecision = "allowed"
	AreaDenied  AreaDecision = "denied"
	AreaUnknown AreaDecision = "unknown"
)

// Decision reasons surfaced alongside an AreaDecision.
const (
	ReasonIncomplete = "incomplete"
	ReasonSameCity   = "same-city"
	ReasonBoundary   = "boundary"
	ReasonDistance   = "distance"
)

// AreaConfig lists localities treated as a single service area. Both fields
// are comma-separated; matching is case-insensitive after trimming.
type AreaConfig struct {
	AllowedCities string
	AllowedStates string
}

func (c AreaConfig) cityAllowed(city string) bool {
	return listContains(c.AllowedCities, city)
}

func (c AreaConfig) stateAllowed(state string) bool {
	return listContains(c.AllowedStates, state)
}

func listContains(csv, value string) bool {
	if value == "" {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(value))
	for _, item := range strings.Split(csv, ",") {
		if strings.ToLower(strings.TrimSpace(item)) == needle {
			return true
		}
	}
	return false
}

// SameServiceArea decides whether two endpoints fall inside one service
// area. The decision is tri-state: unknown when either profile is
// incomplete, allowed when city and state both match or an allow-list
// bridges the boundary, denied otherwise. Only the same-city match carries
// the "same-city" reason; allow-list passes cross a boundary and say so.
func SameServiceArea(pickup, drop LocalityProfile, cfg AreaConfig) (AreaDecision, string) {
	if !pickup.Complete() || !drop.Complete() {
		return AreaUnknown, ReasonIncomplete
	}

	pickupCity := strings.ToLower(pickup.PrimaryLocality())
	dropCity := strings.ToLower(drop.PrimaryLocality())
	pickupState := strings.ToLower(pickup.State)
	dropState := strings.ToLower(drop.State)
	if pickupCity == dropCity && pickupState == dropState {
		return AreaAllowed, ReasonSameCity
	}

	if cfg.cityAllowed(pickup.PrimaryLocality()) && cfg.cityAllowed(drop.PrimaryLocality()) {
		return AreaAllowed, ReasonBoundary
	}
	if pickupState == dropState && cfg.stateAllowed(pickup.State) {
		return AreaAllowed, ReasonBoundary
	}

	return AreaDenied, ReasonBoundary
}
