package application

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropme-cab/service-rides/internal/domain"
	"github.com/dropme-cab/service-rides/internal/domain/trip"
	"github.com/dropme-cab/service-rides/internal/events"
	"github.com/dropme-cab/service-rides/internal/geo"
	"github.com/dropme-cab/service-rides/internal/kafka"
	"github.com/dropme-cab/service-rides/internal/routing"
)

const (
	eventSource = "service-rides"

	// searchTimeout bounds the background lookup triggered by a keystroke.
	searchTimeout = 15 * time.Second

	currentLocationLabel = "Current location"

	chooseRidePath = "/passenger/choose-ride"
)

// Passenger-facing notices and submission errors.
const (
	noticeBoundary = "Pickup and drop-off are in different service areas. We've switched you to an outstation ride."
	noticeDistance = "This trip is too long for a daily ride. We've switched you to an outstation ride."

	msgUnresolvedEndpoints = "Unable to resolve pickup or drop-off location. Please pick one of the suggestions."
	msgNoRoute             = "Unable to calculate the route for this trip. Please try again."
	msgUnknownArea         = "We couldn't confirm your service area. Please select suggested locations for pickup and drop-off."
	msgAreaDenied          = "This trip isn't available as a daily ride. Please choose an outstation ride."
	msgGeolocateFailed     = "Unable to determine your current location. Check location permissions and try again."
)

// EventPublisher publishes CloudEvents to a topic. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// StartSessionRequest holds the data needed to open a resolution session.
type StartSessionRequest struct {
	Category string `json:"category"`
}

// InputRequest carries one keystroke snapshot of an endpoint field.
type InputRequest struct {
	Text string `json:"text"`
}

// SelectRequest commits one of the shown suggestions.
type SelectRequest struct {
	Index int `json:"index"`
}

// GeolocateRequest carries the device position for reverse geocoding.
type GeolocateRequest struct {
	Lat float64 `json:"lat" binding:"required"`
	Lng float64 `json:"lng" binding:"required"`
}

// CategoryRequest changes the requested ride category.
type CategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

// SessionDTO is the response representation of a trip session.
type SessionDTO struct {
	ID                uuid.UUID          `json:"id"`
	PassengerID       uuid.UUID          `json:"passenger_id"`
	Status            string             `json:"status"`
	RequestedCategory string             `json:"requested_category"`
	Notice            string             `json:"notice,omitempty"`
	Pickup            trip.EndpointState `json:"pickup"`
	Drop              trip.EndpointState `json:"drop"`
	Route             trip.RouteResult   `json:"route"`
	Verdict           *trip.Verdict      `json:"verdict,omitempty"`
	Version           int64              `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// SubmissionDTO is the result of a successful submission: the final session
// state plus the redirect the client should follow into ride selection.
type SubmissionDTO struct {
	Session      SessionDTO        `json:"session"`
	RedirectPath string            `json:"redirect_path"`
	Params       map[string]string `json:"params"`
}

// ResolutionService orchestrates endpoint resolution, route estimation and
// eligibility checks for trip sessions.
type ResolutionService struct {
	sessions  trip.SessionRepository
	directory geo.Directory
	estimator routing.Estimator
	producer  EventPublisher
	rules     *trip.RuleSet
	debouncer *Debouncer

	minQueryLength  int
	geolocateExpiry time.Duration
	logger          *zap.Logger
}

// NewResolutionService creates a new ResolutionService.
func NewResolutionService(
	sessions trip.SessionRepository,
	directory geo.Directory,
	estimator routing.Estimator,
	producer EventPublisher,
	rules *trip.RuleSet,
	debouncer *Debouncer,
	minQueryLength int,
	geolocateExpiry time.Duration,
	logger *zap.Logger,
) *ResolutionService {
	return &ResolutionService{
		sessions:        sessions,
		directory:       directory,
		estimator:       estimator,
		producer:        producer,
		rules:           rules,
		debouncer:       debouncer,
		minQueryLength:  minQueryLength,
		geolocateExpiry: geolocateExpiry,
		logger:          logger,
	}
}

// StartSession opens a resolution session for the passenger. An empty
// category defaults to daily.
func (s *ResolutionService) StartSession(ctx context.Context, passengerID uuid.UUID, req StartSessionRequest) (*SessionDTO, error) {
	category := trip.CategoryDaily
	if strings.TrimSpace(req.Category) != "" {
		category = trip.NormalizeCategory(req.Category)
	}

	sess, err := trip.NewTripSession(passengerID, category)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	result := toSessionDTO(sess)
	return &result, nil
}

// GetSession retrieves a session owned by the passenger.
func (s *ResolutionService) GetSession(ctx context.Context, passengerID, sessionID uuid.UUID) (*SessionDTO, error) {
	sess, err := s.loadOwned(ctx, passengerID, sessionID)
	if err != nil {
		return nil, err
	}
	result := toSessionDTO(sess)
	return &result, nil
}

// HandleInput records a keystroke on one endpoint and schedules a debounced
// address lookup. Short queries clear suggestions without a lookup.
func (s *ResolutionService) HandleInput(ctx context.Context, passengerID, sessionID uuid.UUID, sideName string, req InputRequest) (*SessionDTO, error) {
	side, err := trip.ParseSide(sideName)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	sess, err := s.loadOwned(ctx, passengerID, sessionID)
	if err != nil {
		return nil, err
	}

	token, err := sess.BeginTyping(side, req.Text)
	if err != nil {
		return nil, err
	}

	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	query := strings.TrimSpace(req.Text)
	key := debounceKey(sessionID, side)
	if len([]rune(query)) < s.minQueryLength {
		s.debouncer.Cancel(key)
	} else {
		s.debouncer.Trigger(key, func() {
			s.runSearch(sessionID, side, query, token)
		})
	}

	result := toSessionDTO(sess)
	return &result, nil
}

// runSearch performs the debounced lookup and attaches results to the
// session, unless the endpoint moved on to a newer input revision.
func (s *ResolutionService) runSearch(sessionID uuid.UUID, side trip.Side, query string, token int64) {
	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	records, err := s.directory.Search(ctx, query)
	if err != nil {
		s.logger.Warn("address lookup failed",
			zap.String("session_id", sessionID.String()),
			zap.String("side", string(side)),
			zap.Error(err),
		)
		return
	}

	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		s.logger.Warn("session vanished during lookup",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
		return
	}

	autofilled, err := sess.ApplySuggestions(side, token, records)
	if err != nil {
		s.logger.Debug("dropping stale lookup result",
			zap.String("session_id", sessionID.String()),
			zap.String("side", string(side)),
			zap.Int64("token", token),
		)
		return
	}

	if autofilled {
		if err := s.refreshRouteAndVerdict(ctx, sess); err != nil {
			s.logger.Warn("route refresh failed after auto-fill", zap.Error(err))
		}
	}

	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		// A newer revision won the write race; its own lookup supersedes this one.
		s.logger.Debug("lost update race for lookup result",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
	}
}

// HandleSelect commits one of the shown suggestions for an endpoint.
func (s *ResolutionService) HandleSelect(ctx context.Context, passengerID, sessionID uuid.UUID, sideName string, req SelectRequest) (*SessionDTO, error) {
	side, err := trip.ParseSide(sideName)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	sess, err := s.loadOwned(ctx, passengerID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.SelectSuggestion(side, req.Index); err != nil {
		return nil, err
	}
	s.debouncer.Cancel(debounceKey(sessionID, side))

	if err := s.refreshRouteAndVerdict(ctx, sess); err != nil {
		return nil, err
	}

	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	result := toSessionDTO(sess)
	return &result, nil
}

// HandleGeolocate resolves an endpoint from the device position via reverse
// geocoding. The session is left untouched when the lookup fails.
func (s *ResolutionService) HandleGeolocate(ctx context.Context, passengerID, sessionID uuid.UUID, sideName string, req GeolocateRequest) (*SessionDTO, error) {
	side, err := trip.ParseSide(sideName)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if !(trip.Coordinate{Lat: req.Lat, Lon: req.Lng}).Valid() {
		return nil, domain.NewValidationError("invalid device coordinates")
	}

	sess, err := s.loadOwned(ctx, passengerID, sessionID)
	if err != nil {
		return nil, err
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.geolocateExpiry)
	defer cancel()

	rec, err := s.directory.Reverse(lookupCtx, req.Lat, req.Lng)
	if err != nil {
		s.logger.Warn("reverse geocoding failed",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
		return nil, domain.NewUnprocessableError(msgGeolocateFailed)
	}
	if rec.DisplayName == "" {
		rec.DisplayName = currentLocationLabel
	}

	if err := sess.ResolveDirect(side, *rec); err != nil {
		return nil, err
	}
	s.debouncer.Cancel(debounceKey(sessionID, side))

	if err := s.refreshRouteAndVerdict(ctx, sess); err != nil {
		return nil, err
	}

	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	result := toSessionDTO(sess)
	return &result, nil
}

// SetCategory changes the requested category and re-runs the eligibility
// check when both endpoints already carry positions.
func (s *ResolutionService) SetCategory(ctx context.Context, passengerID, sessionID uuid.UUID, req CategoryRequest) (*SessionDTO, error) {
	sess, err := s.loadOwned(ctx, passengerID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.SetRequestedCategory(trip.NormalizeCategory(req.Category)); err != nil {
		return nil, err
	}

	if err := s.refreshRouteAndVerdict(ctx, sess); err != nil {
		return nil, err
	}

	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	result := toSessionDTO(sess)
	return &result, nil
}

// Submit gates the handoff to ride selection. Unresolved endpoints get one
// last-chance geocode of their free text; the submission aborts when either
// endpoint, the route or the verdict cannot be established.
func (s *ResolutionService) Submit(ctx context.Context, passengerID, sessionID uuid.UUID) (*SubmissionDTO, error) {
	sess, err := s.loadOwned(ctx, passengerID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status() != trip.SessionOpen {
		return nil, domain.NewInvalidStateError(string(sess.Status()), string(trip.SessionSubmitted))
	}

	if err := s.resolveRemaining(ctx, sess); err != nil {
		return nil, err
	}
	if !sess.BothHaveCoordinates() {
		return nil, domain.NewUnprocessableError(msgUnresolvedEndpoints)
	}

	// Commit tentative auto-fills so both endpoints end up resolved.
	for _, side := range []trip.Side{trip.SidePickup, trip.SideDrop} {
		ep := sess.Endpoint(side)
		if !ep.Resolved() && ep.Selected != nil {
			if err := sess.ResolveDirect(side, *ep.Selected); err != nil {
				return nil, err
			}
		}
	}

	if err := s.refreshRouteAndVerdict(ctx, sess); err != nil {
		return nil, err
	}
	if sess.Route().Empty() {
		return nil, domain.NewUnprocessableError(msgNoRoute)
	}
	verdict := sess.Verdict()
	if verdict == nil || verdict.Allowed == trip.AreaUnknown {
		return nil, domain.NewUnprocessableError(msgUnknownArea)
	}
	if verdict.Allowed == trip.AreaDenied {
		return nil, domain.NewUnprocessableError(msgAreaDenied)
	}

	// Authoritative final category, independent of what the client showed.
	final, reason := trip.DeriveCategory(
		sess.RequestedCategory(),
		profileOrEmpty(sess.Pickup()),
		profileOrEmpty(sess.Drop()),
		sess.Route().DistanceKm,
		s.rules.Current(),
	)
	if final != sess.RequestedCategory() {
		from := sess.RequestedCategory()
		if err := sess.SwitchCategory(final, noticeFor(reason)); err != nil {
			return nil, err
		}
		s.publishCategorySwitched(ctx, sess, from, reason)
	}

	if err := sess.MarkSubmitted(); err != nil {
		return nil, err
	}
	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	s.debouncer.Cancel(debounceKey(sessionID, trip.SidePickup))
	s.debouncer.Cancel(debounceKey(sessionID, trip.SideDrop))

	s.publishRideRequested(ctx, sess)

	params := redirectParams(sess)
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	return &SubmissionDTO{
		Session:      toSessionDTO(sess),
		RedirectPath: chooseRidePath + "?" + values.Encode(),
		Params:       params,
	}, nil
}

// Abandon closes a session without submitting it.
func (s *ResolutionService) Abandon(ctx context.Context, passengerID, sessionID uuid.UUID) (*SessionDTO, error) {
	sess, err := s.loadOwned(ctx, passengerID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.Abandon(); err != nil {
		return nil, err
	}
	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	s.debouncer.Cancel(debounceKey(sessionID, trip.SidePickup))
	s.debouncer.Cancel(debounceKey(sessionID, trip.SideDrop))

	result := toSessionDTO(sess)
	return &result, nil
}

// GetPassengerSessions retrieves paginated sessions for a passenger.
func (s *ResolutionService) GetPassengerSessions(ctx context.Context, passengerID uuid.UUID, page, limit int) (*domain.PaginatedResult[SessionDTO], error) {
	sessions, total, err := s.sessions.FindByPassengerID(ctx, passengerID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]SessionDTO, len(sessions))
	for i, sess := range sessions {
		dtos[i] = toSessionDTO(sess)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// --- Admin methods ---

// SessionStatsDTO holds session statistics for the admin dashboard.
type SessionStatsDTO struct {
	TotalSessions int64            `json:"total_sessions"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllSessions returns a paginated list of all sessions (admin).
func (s *ResolutionService) ListAllSessions(ctx context.Context, page, limit int) ([]SessionDTO, int64, error) {
	sessions, total, err := s.sessions.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	dtos := make([]SessionDTO, len(sessions))
	for i, sess := range sessions {
		dtos[i] = toSessionDTO(sess)
	}
	return dtos, total, nil
}

// GetSessionStats returns aggregate session statistics (admin).
func (s *ResolutionService) GetSessionStats(ctx context.Context) (*SessionStatsDTO, error) {
	counts, err := s.sessions.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &SessionStatsDTO{
		TotalSessions: total,
		ByStatus:      counts,
	}, nil
}

// --- Helpers ---

func (s *ResolutionService) loadOwned(ctx context.Context, passengerID, sessionID uuid.UUID) (*trip.TripSession, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.PassengerID() != passengerID {
		return nil, domain.NewForbiddenError("session does not belong to this user")
	}
	return sess, nil
}

// resolveRemaining geocodes both unresolved endpoints concurrently from
// their free text. Lookup failures leave the endpoint unresolved; the caller
// decides whether that aborts the submission.
func (s *ResolutionService) resolveRemaining(ctx context.Context, sess *trip.TripSession) error {
	type lastChance struct {
		side trip.Side
		text string
		rec  *trip.AddressRecord
	}

	var pending []*lastChance
	for _, side := range []trip.Side{trip.SidePickup, trip.SideDrop} {
		ep := sess.Endpoint(side)
		if ep.HasCoordinates() {
			continue
		}
		text := strings.TrimSpace(ep.Query)
		if text == "" {
			return domain.NewUnprocessableError(msgUnresolvedEndpoints)
		}
		pending = append(pending, &lastChance{side: side, text: text})
	}
	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, lc := range pending {
		lc := lc
		g.Go(func() error {
			records, err := s.directory.Search(gctx, lc.text)
			if err != nil {
				s.logger.Warn("last-chance geocode failed",
					zap.String("side", string(lc.side)),
					zap.Error(err),
				)
				return nil
			}
			if len(records) > 0 {
				lc.rec = &records[0]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, lc := range pending {
		if lc.rec == nil {
			continue
		}
		if err := sess.ResolveDirect(lc.side, *lc.rec); err != nil {
			return err
		}
	}
	return nil
}

// refreshRouteAndVerdict recomputes the route estimate and the eligibility
// verdict once both endpoints carry positions. A denied verdict switches the
// session to the fallback category and re-evaluates.
func (s *ResolutionService) refreshRouteAndVerdict(ctx context.Context, sess *trip.TripSession) error {
	if !sess.BothHaveCoordinates() {
		return nil
	}

	pickup := sess.Pickup()
	drop := sess.Drop()
	route, err := s.estimator.Estimate(ctx, *pickup.Coord, *drop.Coord)
	if err != nil {
		return domain.NewUnprocessableError(msgNoRoute)
	}
	sess.SetRoute(route)

	rules := s.rules.Current()
	pickupProfile := profileOrEmpty(pickup)
	dropProfile := profileOrEmpty(drop)

	verdict := trip.Evaluate(sess.RequestedCategory(), pickupProfile, dropProfile, route.DistanceKm, rules)
	if verdict.Allowed == trip.AreaDenied && verdict.FallbackCategory != "" {
		from := sess.RequestedCategory()
		reason := verdict.Reason
		if err := sess.SwitchCategory(verdict.FallbackCategory, noticeFor(reason)); err != nil {
			return err
		}
		s.publishCategorySwitched(ctx, sess, from, reason)
		verdict = trip.Evaluate(sess.RequestedCategory(), pickupProfile, dropProfile, route.DistanceKm, rules)
	}
	sess.SetVerdict(&verdict)
	return nil
}

func profileOrEmpty(ep trip.EndpointState) trip.LocalityProfile {
	if ep.Profile != nil {
		return *ep.Profile
	}
	return trip.LocalityProfile{}
}

func noticeFor(reason string) string {
	if reason == trip.ReasonDistance {
		return noticeDistance
	}
	return noticeBoundary
}

func debounceKey(sessionID uuid.UUID, side trip.Side) string {
	return sessionID.String() + ":" + string(side)
}

func redirectParams(sess *trip.TripSession) map[string]string {
	pickup := sess.Pickup()
	drop := sess.Drop()
	route := sess.Route()

	params := map[string]string{
		"pickup":       pickup.Query,
		"dropoff":      drop.Query,
		"distance_km":  route.DistanceString(),
		"duration_min": route.DurationString(),
		"ride_type":    string(sess.RequestedCategory()),
	}
	if pickup.Coord != nil {
		params["pickup_lat"] = formatCoord(pickup.Coord.Lat)
		params["pickup_lng"] = formatCoord(pickup.Coord.Lon)
	}
	if drop.Coord != nil {
		params["drop_lat"] = formatCoord(drop.Coord.Lat)
		params["drop_lng"] = formatCoord(drop.Coord.Lon)
	}
	if pickup.Profile != nil {
		params["pickup_city"] = pickup.Profile.City
		params["pickup_district"] = pickup.Profile.District
		params["pickup_state"] = pickup.Profile.State
	}
	if drop.Profile != nil {
		params["drop_city"] = drop.Profile.City
		params["drop_district"] = drop.Profile.District
		params["drop_state"] = drop.Profile.State
	}
	return params
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toSessionDTO(sess *trip.TripSession) SessionDTO {
	return SessionDTO{
		ID:                sess.ID(),
		PassengerID:       sess.PassengerID(),
		Status:            string(sess.Status()),
		RequestedCategory: string(sess.RequestedCategory()),
		Notice:            sess.Notice(),
		Pickup:            sess.Pickup(),
		Drop:              sess.Drop(),
		Route:             sess.Route(),
		Verdict:           sess.Verdict(),
		Version:           sess.Version(),
		CreatedAt:         sess.CreatedAt(),
		UpdatedAt:         sess.UpdatedAt(),
	}
}

func (s *ResolutionService) publishRideRequested(ctx context.Context, sess *trip.TripSession) {
	pickup := sess.Pickup()
	drop := sess.Drop()
	route := sess.Route()

	evt := events.RideRequestedEvent{
		SessionID:   sess.ID(),
		PassengerID: sess.PassengerID(),
		RideType:    string(sess.RequestedCategory()),
		Pickup:      pickup.Query,
		Dropoff:     drop.Query,
		RequestedAt: time.Now().UTC(),
	}
	if pickup.Coord != nil {
		evt.PickupLat = pickup.Coord.Lat
		evt.PickupLng = pickup.Coord.Lon
	}
	if drop.Coord != nil {
		evt.DropLat = drop.Coord.Lat
		evt.DropLng = drop.Coord.Lon
	}
	if route.DistanceKm != nil {
		evt.DistanceKm = *route.DistanceKm
	}
	if route.DurationMin != nil {
		evt.DurationMin = *route.DurationMin
	}
	s.publishEvent(ctx, events.TopicRideEvents, events.RideRequested, evt)
}

func (s *ResolutionService) publishCategorySwitched(ctx context.Context, sess *trip.TripSession, from trip.RideCategory, reason string) {
	evt := events.RideCategorySwitchedEvent{
		SessionID:   sess.ID(),
		PassengerID: sess.PassengerID(),
		From:        string(from),
		To:          string(sess.RequestedCategory()),
		Reason:      reason,
		OccurredAt:  time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicRideEvents, events.RideCategorySwitched, evt)
}

func (s *ResolutionService) publishEvent(ctx context.Context, topic, eventType string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.PublishEvent(ctx, topic, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
