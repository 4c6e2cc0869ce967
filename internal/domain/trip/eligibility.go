package trip

import "strings"

// Verdict is the outcome of an eligibility check for a requested category.
type Verdict struct {
	Allowed          AreaDecision `json:"allowed"`
	Reason           string       `json:"reason,omitempty"`
	FallbackCategory RideCategory `json:"fallback_category,omitempty"`
}

// RulesConfig carries the business rules the eligibility engine applies.
type RulesConfig struct {
	OutstationThresholdKm float64
	Area                  AreaConfig
	OutstationDisallowed  string
}

// Evaluate decides whether a requested category is permitted for the given
// endpoints and distance. Checks run in a fixed order: incomplete data wins
// over everything, then the service-area boundary, then the distance
// threshold. Rental and outstation requests carry no locality restriction.
func Evaluate(requested RideCategory, pickup, drop LocalityProfile, distanceKm *float64, cfg RulesConfig) Verdict {
	if requested != CategoryDaily {
		return Verdict{Allowed: AreaAllowed}
	}

	decision, reason := SameServiceArea(pickup, drop, cfg.Area)
	switch decision {
	case AreaUnknown:
		return Verdict{Allowed: AreaUnknown, Reason: reason}
	case AreaDenied:
		return Verdict{Allowed: AreaDenied, Reason: reason, FallbackCategory: CategoryOutstation}
	}

	if distanceKm != nil && *distanceKm >= cfg.OutstationThresholdKm {
		return Verdict{Allowed: AreaDenied, Reason: ReasonDistance, FallbackCategory: CategoryOutstation}
	}

	return Verdict{Allowed: AreaAllowed, Reason: reason}
}

// VehicleAllowed reports whether a vehicle class may serve the category.
// Only outstation rides restrict vehicle classes.
func VehicleAllowed(category RideCategory, vehicleClass string, cfg RulesConfig) bool {
	if category != CategoryOutstation {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(vehicleClass))
	for _, class := range ParseVehicleList(cfg.OutstationDisallowed) {
		if strings.ToLower(class) == needle {
			return false
		}
	}
	return true
}

// DeriveCategory computes the authoritative category for a trip at
// submission time, regardless of what the passenger selected. The returned
// reason names the rule that decided: "requested", "distance", "locality"
// or "fallback".
func DeriveCategory(requested RideCategory, pickup, drop LocalityProfile, distanceKm *float64, cfg RulesConfig) (RideCategory, string) {
	if requested == CategoryRental {
		return CategoryRental, "requested"
	}

	if distanceKm != nil && *distanceKm >= cfg.OutstationThresholdKm {
		return CategoryOutstation, ReasonDistance
	}

	decision, _ := SameServiceArea(pickup, drop, cfg.Area)
	switch decision {
	case AreaAllowed:
		return CategoryDaily, "locality"
	case AreaDenied:
		return CategoryOutstation, "locality"
	}

	if requested == CategoryOutstation {
		return CategoryOutstation, "requested"
	}
	return CategoryDaily, "fallback"
}

// ParseVehicleList splits a comma-separated vehicle class list.
func ParseVehicleList(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
