// Package events defines the Kafka topics and payloads the rides service
// produces and consumes.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	// TopicRideEvents carries passenger-facing ride lifecycle events.
	TopicRideEvents = "ride.events"

	// TopicServiceArea carries admin updates to the service-area rules.
	TopicServiceArea = "admin.service_area"
)

// Event types.
const (
	RideRequested        = "ride.requested"
	RideCategorySwitched = "ride.category_switched"
	ServiceAreaUpdated   = "admin.service_area_updated"
)

// RideRequestedEvent is published when a trip session is submitted.
type RideRequestedEvent struct {
	SessionID   uuid.UUID `json:"session_id"`
	PassengerID uuid.UUID `json:"passenger_id"`
	RideType    string    `json:"ride_type"`
	Pickup      string    `json:"pickup"`
	Dropoff     string    `json:"dropoff"`
	PickupLat   float64   `json:"pickup_lat"`
	PickupLng   float64   `json:"pickup_lng"`
	DropLat     float64   `json:"drop_lat"`
	DropLng     float64   `json:"drop_lng"`
	DistanceKm  float64   `json:"distance_km"`
	DurationMin int       `json:"duration_min"`
	RequestedAt time.Time `json:"requested_at"`
}

// RideCategorySwitchedEvent is published when the service overrides the
// passenger's requested category.
type RideCategorySwitchedEvent struct {
	SessionID   uuid.UUID `json:"session_id"`
	PassengerID uuid.UUID `json:"passenger_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Reason      string    `json:"reason"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ServiceAreaUpdatedEvent is consumed from the admin service to replace the
// active eligibility rules at runtime.
type ServiceAreaUpdatedEvent struct {
	AllowedCities         string    `json:"allowed_cities"`
	AllowedStates         string    `json:"allowed_states"`
	OutstationThresholdKm float64   `json:"outstation_threshold_km"`
	OutstationDisallowed  string    `json:"outstation_disallowed_vehicles"`
	UpdatedAt             time.Time `json:"updated_at"`
}
