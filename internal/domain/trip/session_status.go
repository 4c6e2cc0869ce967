package trip

import "fmt"

// SessionStatus represents the lifecycle state of a trip session.
type SessionStatus string

const (
	SessionOpen      SessionStatus = "open"
	SessionSubmitted SessionStatus = "submitted"
	SessionAbandoned SessionStatus = "abandoned"
)

// sessionTransitions defines the state machine for session lifecycle transitions.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionOpen:      {SessionSubmitted, SessionAbandoned},
	SessionSubmitted: {},
	SessionAbandoned: {},
}

// IsValid returns true if the status is a recognized session status.
func (s SessionStatus) IsValid() bool {
	_, exists := sessionTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	allowed, exists := sessionTransitions[s]
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

// IsTerminal returns true if no further transitions are possible from this status.
func (s SessionStatus) IsTerminal() bool {
	allowed, exists := sessionTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// String returns the string representation of the status.
func (s SessionStatus) String() string {
	return string(s)
}

// ParseSessionStatus converts a string to a SessionStatus, returning an error if invalid.
func ParseSessionStatus(s string) (SessionStatus, error) {
	status := SessionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid session status: %s", s)
	}
	return status, nil
}
