package trip

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropme-cab/service-rides/internal/domain"
)

// ErrStaleResult signals that an asynchronous lookup result arrived after
// the endpoint it was issued for changed again. Stale results are dropped.
var ErrStaleResult = errors.New("stale resolution result")

// TripSession is the aggregate root for the resolution domain. It tracks
// both endpoints, the current route estimate and the latest eligibility
// verdict for one passenger's booking attempt.
type TripSession struct {
	id                uuid.UUID
	passengerID       uuid.UUID
	status            SessionStatus
	requestedCategory RideCategory
	pickup            EndpointState
	drop              EndpointState
	route             RouteResult
	verdict           *Verdict
	notice            string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewTripSession creates a new open session for the passenger.
func NewTripSession(passengerID uuid.UUID, requested RideCategory) (*TripSession, error) {
	if passengerID == uuid.Nil {
		return nil, domain.NewValidationError("passenger ID is required")
	}
	if !requested.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid ride category: %s", requested))
	}

	now := time.Now().UTC()
	return &TripSession{
		id:                uuid.New(),
		passengerID:       passengerID,
		status:            SessionOpen,
		requestedCategory: requested,
		pickup:            NewEndpointState(SidePickup),
		drop:              NewEndpointState(SideDrop),
		route:             EmptyRouteResult(),
		version:           1,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// ReconstructTripSession rebuilds a TripSession from persistence data (no validation).
func ReconstructTripSession(
	id uuid.UUID,
	passengerID uuid.UUID,
	status SessionStatus,
	requestedCategory RideCategory,
	pickup EndpointState,
	drop EndpointState,
	route RouteResult,
	verdict *Verdict,
	notice string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *TripSession {
	return &TripSession{
		id:                id,
		passengerID:       passengerID,
		status:            status,
		requestedCategory: requestedCategory,
		pickup:            pickup,
		drop:              drop,
		route:             route,
		verdict:           verdict,
		notice:            notice,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// --- Getters ---

// ID returns the session's unique identifier.
func (s *TripSession) ID() uuid.UUID { return s.id }

// PassengerID returns the passenger's user ID.
func (s *TripSession) PassengerID() uuid.UUID { return s.passengerID }

// Status returns the current session status.
func (s *TripSession) Status() SessionStatus { return s.status }

// RequestedCategory returns the active ride category.
func (s *TripSession) RequestedCategory() RideCategory { return s.requestedCategory }

// Pickup returns a copy of the pickup endpoint state.
func (s *TripSession) Pickup() EndpointState { return s.pickup }

// Drop returns a copy of the drop endpoint state.
func (s *TripSession) Drop() EndpointState { return s.drop }

// Route returns the current route estimate.
func (s *TripSession) Route() RouteResult { return s.route }

// Verdict returns the latest eligibility verdict, or nil if none computed.
func (s *TripSession) Verdict() *Verdict { return s.verdict }

// Notice returns the passenger-facing notice set by a category switch.
func (s *TripSession) Notice() string { return s.notice }

// Version returns the entity version for optimistic locking.
func (s *TripSession) Version() int64 { return s.version }

// CreatedAt returns the creation timestamp.
func (s *TripSession) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (s *TripSession) UpdatedAt() time.Time { return s.updatedAt }

// Endpoint returns a copy of the endpoint state for the given side.
func (s *TripSession) Endpoint(side Side) EndpointState {
	return *s.endpointRef(side)
}

// BothResolved reports whether both endpoints are committed.
func (s *TripSession) BothResolved() bool {
	return s.pickup.Resolved() && s.drop.Resolved()
}

// BothHaveCoordinates reports whether both endpoints carry a position,
// committed or tentatively auto-filled.
func (s *TripSession) BothHaveCoordinates() bool {
	return s.pickup.HasCoordinates() && s.drop.HasCoordinates()
}

func (s *TripSession) endpointRef(side Side) *EndpointState {
	if side == SidePickup {
		return &s.pickup
	}
	return &s.drop
}

// --- Behavior ---

// BeginTyping records a keystroke on one endpoint. Any previous resolution,
// route estimate and verdict become stale and are cleared. The returned
// token identifies this input revision; asynchronous lookup results must
// present it back via ApplySuggestions.
func (s *TripSession) BeginTyping(side Side, text string) (int64, error) {
	if s.status != SessionOpen {
		return 0, domain.NewInvalidStateError(string(s.status), string(SessionOpen))
	}

	ep := s.endpointRef(side)
	ep.Token++
	ep.Query = text
	ep.Suggestions = nil
	ep.clearResolution()

	if strings.TrimSpace(text) == "" {
		ep.Status = EndpointEmpty
	} else {
		ep.Status = EndpointTyping
	}

	s.route = EmptyRouteResult()
	s.verdict = nil
	s.updatedAt = time.Now().UTC()
	return ep.Token, nil
}

// ApplySuggestions attaches lookup results to an endpoint. The token must
// match the endpoint's current input revision; otherwise the result is
// stale and ErrStaleResult is returned. When the endpoint has no position
// yet, the top result is tentatively auto-filled. Returns true if the
// auto-fill happened.
func (s *TripSession) ApplySuggestions(side Side, token int64, records []AddressRecord) (bool, error) {
	if s.status != SessionOpen {
		return false, ErrStaleResult
	}

	ep := s.endpointRef(side)
	if token != ep.Token {
		return false, ErrStaleResult
	}
	if !ep.Status.CanTransitionTo(EndpointSuggestionsShown) {
		return false, ErrStaleResult
	}

	ep.Suggestions = records
	ep.Status = EndpointSuggestionsShown

	autofilled := false
	if ep.Coord == nil && len(records) > 0 && records[0].Valid() {
		top := records[0]
		coord := top.Coordinate()
		profile := Classify(top)
		ep.Selected = &top
		ep.Coord = &coord
		ep.Profile = &profile
		ep.Query = top.DisplayName
		autofilled = true
	}

	s.updatedAt = time.Now().UTC()
	return autofilled, nil
}

// SelectSuggestion commits one of the shown suggestions as the endpoint's
// location. The endpoint becomes resolved and any in-flight lookup for an
// older input revision is invalidated.
func (s *TripSession) SelectSuggestion(side Side, index int) error {
	if s.status != SessionOpen {
		return domain.NewInvalidStateError(string(s.status), string(SessionOpen))
	}

	ep := s.endpointRef(side)
	if ep.Status != EndpointSuggestionsShown {
		return domain.NewInvalidStateError(string(ep.Status), string(EndpointResolved))
	}
	if index < 0 || index >= len(ep.Suggestions) {
		return domain.NewValidationError(fmt.Sprintf("suggestion index out of range: %d", index))
	}

	rec := ep.Suggestions[index]
	if !rec.Valid() {
		return domain.NewUnprocessableError("selected suggestion has invalid coordinates")
	}

	s.commitRecord(ep, rec)
	return nil
}

// ResolveDirect commits an endpoint straight to a known location, bypassing
// the suggestion flow. Used for reverse-geocoded device positions and for
// last-chance resolution at submission.
func (s *TripSession) ResolveDirect(side Side, rec AddressRecord) error {
	if s.status != SessionOpen {
		return domain.NewInvalidStateError(string(s.status), string(SessionOpen))
	}
	if !rec.Valid() {
		return domain.NewUnprocessableError("location has invalid coordinates")
	}

	s.commitRecord(s.endpointRef(side), rec)
	return nil
}

func (s *TripSession) commitRecord(ep *EndpointState, rec AddressRecord) {
	coord := rec.Coordinate()
	profile := Classify(rec)

	ep.Token++
	ep.Selected = &rec
	ep.Coord = &coord
	ep.Profile = &profile
	ep.Query = rec.DisplayName
	ep.Suggestions = nil
	ep.Status = EndpointResolved

	s.updatedAt = time.Now().UTC()
}

// SetRequestedCategory changes the active ride category on passenger request.
func (s *TripSession) SetRequestedCategory(category RideCategory) error {
	if s.status != SessionOpen {
		return domain.NewInvalidStateError(string(s.status), string(SessionOpen))
	}
	if !category.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid ride category: %s", category))
	}
	s.requestedCategory = category
	s.notice = ""
	s.verdict = nil
	s.updatedAt = time.Now().UTC()
	return nil
}

// SwitchCategory changes the active category on the service's own initiative
// and records a passenger-facing notice explaining why.
func (s *TripSession) SwitchCategory(to RideCategory, notice string) error {
	if s.status != SessionOpen {
		return domain.NewInvalidStateError(string(s.status), string(SessionOpen))
	}
	if !to.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid ride category: %s", to))
	}
	s.requestedCategory = to
	s.notice = notice
	s.updatedAt = time.Now().UTC()
	return nil
}

// SetRoute stores the current route estimate.
func (s *TripSession) SetRoute(route RouteResult) {
	s.route = route
	s.updatedAt = time.Now().UTC()
}

// SetVerdict stores the latest eligibility verdict.
func (s *TripSession) SetVerdict(v *Verdict) {
	s.verdict = v
	s.updatedAt = time.Now().UTC()
}

// MarkSubmitted transitions the session to submitted.
func (s *TripSession) MarkSubmitted() error {
	if !s.status.CanTransitionTo(SessionSubmitted) {
		return domain.NewInvalidStateError(string(s.status), string(SessionSubmitted))
	}
	s.status = SessionSubmitted
	s.updatedAt = time.Now().UTC()
	return nil
}

// Abandon transitions the session to abandoned.
func (s *TripSession) Abandon() error {
	if !s.status.CanTransitionTo(SessionAbandoned) {
		return domain.NewInvalidStateError(string(s.status), string(SessionAbandoned))
	}
	s.status = SessionAbandoned
	s.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (s *TripSession) IncrementVersion() {
	s.version++
	s.updatedAt = time.Now().UTC()
}
