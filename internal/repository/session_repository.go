package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropme-cab/service-rides/internal/domain"
	"github.com/dropme-cab/service-rides/internal/domain/trip"
)

// TripSessionModel is the GORM model for the trip_sessions table.
type TripSessionModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PassengerID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	Status            string          `gorm:"not null;size:30;index"`
	RequestedCategory string          `gorm:"not null;size:20"`
	Pickup            json.RawMessage `gorm:"type:jsonb;not null"`
	Drop              json.RawMessage `gorm:"column:drop_off;type:jsonb;not null"`
	Route             json.RawMessage `gorm:"type:jsonb;not null"`
	Verdict           json.RawMessage `gorm:"type:jsonb"`
	Notice            string          `gorm:"size:500"`
	Version           int64           `gorm:"not null;default:1"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (TripSessionModel) TableName() string {
	return "trip_sessions"
}

// GormSessionRepository is the GORM-based implementation of SessionRepository.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByID retrieves a session by its unique identifier.
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*trip.TripSession, error) {
	var model TripSessionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("TripSession", id.String())
		}
		return nil, fmt.Errorf("failed to find session by ID: %w", err)
	}
	return toDomainSession(&model)
}

// FindByPassengerID retrieves sessions for a specific passenger with pagination.
func (r *GormSessionRepository) FindByPassengerID(ctx context.Context, passengerID uuid.UUID, page, limit int) ([]*trip.TripSession, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&TripSessionModel{}).Where("passenger_id = ?", passengerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count passenger sessions: %w", err)
	}

	var models []TripSessionModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("passenger_id = ?", passengerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find passenger sessions: %w", err)
	}

	sessions, err := toDomainSessions(models)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// ListAll retrieves all sessions with pagination (admin).
func (r *GormSessionRepository) ListAll(ctx context.Context, page, limit int) ([]*trip.TripSession, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&TripSessionModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	var models []TripSessionModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions, err := toDomainSessions(models)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// CountByStatus returns session counts grouped by status (admin).
func (r *GormSessionRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&TripSessionModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new session.
func (r *GormSessionRepository) Save(ctx context.Context, sess *trip.TripSession) error {
	model, err := toSessionModel(sess)
	if err != nil {
		return fmt.Errorf("failed to convert session to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Update persists changes to an existing session with optimistic locking.
func (r *GormSessionRepository) Update(ctx context.Context, sess *trip.TripSession) error {
	model, err := toSessionModel(sess)
	if err != nil {
		return fmt.Errorf("failed to convert session to model: %w", err)
	}

	// Optimistic locking: only update if the version matches (current version - 1 since IncrementVersion was called)
	expectedVersion := sess.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&TripSessionModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":             model.Status,
			"requested_category": model.RequestedCategory,
			"pickup":             model.Pickup,
			"drop_off":           model.Drop,
			"route":              model.Route,
			"verdict":            model.Verdict,
			"notice":             model.Notice,
			"version":            model.Version,
			"updated_at":         model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("session was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toSessionModel(sess *trip.TripSession) (*TripSessionModel, error) {
	pickupJSON, err := json.Marshal(sess.Pickup())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pickup endpoint: %w", err)
	}

	dropJSON, err := json.Marshal(sess.Drop())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal drop endpoint: %w", err)
	}

	routeJSON, err := json.Marshal(sess.Route())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route: %w", err)
	}

	var verdictJSON json.RawMessage
	if sess.Verdict() != nil {
		data, err := json.Marshal(sess.Verdict())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal verdict: %w", err)
		}
		verdictJSON = data
	}

	return &TripSessionModel{
		ID:                sess.ID(),
		PassengerID:       sess.PassengerID(),
		Status:            string(sess.Status()),
		RequestedCategory: string(sess.RequestedCategory()),
		Pickup:            pickupJSON,
		Drop:              dropJSON,
		Route:             routeJSON,
		Verdict:           verdictJSON,
		Notice:            sess.Notice(),
		Version:           sess.Version(),
		CreatedAt:         sess.CreatedAt(),
		UpdatedAt:         sess.UpdatedAt(),
	}, nil
}

func toDomainSession(m *TripSessionModel) (*trip.TripSession, error) {
	var pickup trip.EndpointState
	if err := json.Unmarshal(m.Pickup, &pickup); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pickup endpoint: %w", err)
	}

	var drop trip.EndpointState
	if err := json.Unmarshal(m.Drop, &drop); err != nil {
		return nil, fmt.Errorf("failed to unmarshal drop endpoint: %w", err)
	}

	var route trip.RouteResult
	if err := json.Unmarshal(m.Route, &route); err != nil {
		return nil, fmt.Errorf("failed to unmarshal route: %w", err)
	}

	var verdict *trip.Verdict
	if len(m.Verdict) > 0 {
		var v trip.Verdict
		if err := json.Unmarshal(m.Verdict, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdict: %w", err)
		}
		verdict = &v
	}

	status, err := trip.ParseSessionStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return trip.ReconstructTripSession(
		m.ID,
		m.PassengerID,
		status,
		trip.RideCategory(m.RequestedCategory),
		pickup,
		drop,
		route,
		verdict,
		m.Notice,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainSessions(models []TripSessionModel) ([]*trip.TripSession, error) {
	sessions := make([]*trip.TripSession, len(models))
	for i, m := range models {
		sess, err := toDomainSession(&m)
		if err != nil {
			return nil, err
		}
		sessions[i] = sess
	}
	return sessions, nil
}
