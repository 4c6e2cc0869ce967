package trip

import "fmt"

// Side distinguishes the pickup endpoint from the drop endpoint.
type Side string

const (
	SidePickup Side = "pickup"
	SideDrop   Side = "drop"
)

// ParseSide converts a string to a Side, returning an error if invalid.
func ParseSide(s string) (Side, error) {
	side := Side(s)
	if side != SidePickup && side != SideDrop {
		return "", fmt.Errorf("invalid endpoint side: %s", s)
	}
	return side, nil
}

// EndpointStatus represents the resolution state of one endpoint.
type EndpointStatus string

const (
	EndpointEmpty            EndpointStatus = "empty"
	EndpointTyping           EndpointStatus = "typing"
	EndpointSuggestionsShown EndpointStatus = "suggestions_shown"
	EndpointResolved         EndpointStatus = "resolved"
)

// endpointTransitions defines the state machine for endpoint resolution.
// Every state may fall back to empty (the passenger clears the field) or
// typing (the passenger edits).
var endpointTransitions = map[EndpointStatus][]EndpointStatus{
	EndpointEmpty:            {EndpointTyping, EndpointResolved},
	EndpointTyping:           {EndpointEmpty, EndpointTyping, EndpointSuggestionsShown, EndpointResolved},
	EndpointSuggestionsShown: {EndpointEmpty, EndpointTyping, EndpointSuggestionsShown, EndpointResolved},
	EndpointResolved:         {EndpointEmpty, EndpointTyping, EndpointResolved},
}

// IsValid returns true if the status is a recognized endpoint status.
func (s EndpointStatus) IsValid() bool {
	_, exists := endpointTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s EndpointStatus) CanTransitionTo(target EndpointStatus) bool {
	allowed, exists := endpointTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// String returns the string representation of the status.
func (s EndpointStatus) String() string {
	return string(s)
}

// EndpointState is the full resolution state of one endpoint. It is a value
// object owned by the TripSession aggregate; callers outside the package
// receive copies and mutate only through the aggregate.
type EndpointState struct {
	Side        Side             `json:"side"`
	Query       string           `json:"query"`
	Status      EndpointStatus   `json:"status"`
	Suggestions []AddressRecord  `json:"suggestions,omitempty"`
	Selected    *AddressRecord   `json:"selected,omitempty"`
	Profile     *LocalityProfile `json:"profile,omitempty"`
	Coord       *Coordinate      `json:"coord,omitempty"`
	Token       int64            `json:"token"`
}

// NewEndpointState creates an empty endpoint for the given side.
func NewEndpointState(side Side) EndpointState {
	return EndpointState{Side: side, Status: EndpointEmpty}
}

// Resolved reports whether the endpoint has been committed to a location.
func (e EndpointState) Resolved() bool {
	return e.Status == EndpointResolved && e.Coord != nil
}

// HasCoordinates reports whether the endpoint carries a position, committed
// or tentative.
func (e EndpointState) HasCoordinates() bool {
	return e.Coord != nil
}

// clearResolution drops any selected location, profile and coordinates.
func (e *EndpointState) clearResolution() {
	e.Selected = nil
	e.Profile = nil
	e.Coord = nil
}
