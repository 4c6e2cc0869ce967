package trip

import (
	"context"

	"github.com/google/uuid"
)

// SessionRepository defines the persistence contract for trip session aggregates.
type SessionRepository interface {
	// FindByID retrieves a session by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*TripSession, error)

	// FindByPassengerID retrieves sessions belonging to a passenger with pagination.
	FindByPassengerID(ctx context.Context, passengerID uuid.UUID, page, limit int) ([]*TripSession, int64, error)

	// ListAll retrieves all sessions with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*TripSession, int64, error)

	// CountByStatus returns session counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new session.
	Save(ctx context.Context, session *TripSession) error

	// Update persists changes to an existing session with optimistic locking.
	Update(ctx context.Context, session *TripSession) error
}
