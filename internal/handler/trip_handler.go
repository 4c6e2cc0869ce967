package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dropme-cab/service-rides/internal/application"
	"github.com/dropme-cab/service-rides/internal/auth"
	"github.com/dropme-cab/service-rides/internal/middleware"
	"github.com/dropme-cab/service-rides/internal/response"
)

// TripHandler handles HTTP requests for trip resolution sessions.
type TripHandler struct {
	service *application.ResolutionService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(service *application.ResolutionService) *TripHandler {
	return &TripHandler{service: service}
}

// RegisterRoutes registers all trip routes on the given router group.
func (h *TripHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	trips := r.Group("/api/v1/trips")
	trips.Use(authMW)
	{
		trips.POST("", h.StartSession)
		trips.GET("", h.ListSessions)
		trips.GET("/:id", h.GetSession)
		trips.POST("/:id/endpoints/:side/input", h.HandleInput)
		trips.POST("/:id/endpoints/:side/select", h.HandleSelect)
		trips.POST("/:id/endpoints/:side/geolocate", h.HandleGeolocate)
		trips.POST("/:id/category", h.SetCategory)
		trips.POST("/:id/submit", h.Submit)
		trips.POST("/:id/abandon", h.Abandon)
	}
}

// StartSession handles POST /api/v1/trips.
func (h *TripHandler) StartSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.StartSessionRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.service.StartSession(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListSessions handles GET /api/v1/trips.
func (h *TripHandler) ListSessions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, limit := parsePagination(c)
	result, err := h.service.GetPassengerSessions(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetSession handles GET /api/v1/trips/:id.
func (h *TripHandler) GetSession(c *gin.Context) {
	userID, sessionID, ok := h.callerAndSession(c)
	if !ok {
		return
	}

	result, err := h.service.GetSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// HandleInput handles POST /api/v1/trips/:id/endpoints/:side/input.
func (h *TripHandler) HandleInput(c *gin.Context) {
	userID, sessionID, ok := h.callerAndSession(c)
	if !ok {
		return
	}

	var req application.InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.HandleInput(c.Request.Context(), userID, sessionID, c.Param("side"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// HandleSelect handles POST /api/v1/trips/:id/endpoints/:side/select.
func (h *TripHandler) HandleSelect(c *gin.Context) {
	userID, sessionID, ok := h.callerAndSession(c)
	if !ok {
		return
	}

	var req application.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.HandleSelect(c.Request.Context(), userID, sessionID, c.Param("side"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// HandleGeolocate handles POST /api/v1/trips/:id/endpoints/:side/geolocate.
func (h *TripHandler) HandleGeolocate(c *gin.Context) {
	userID, sessionID, ok := h.callerAndSession(c)
	if !ok {
		return
	}

	var req application.GeolocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.HandleGeolocate(c.Request.Context(), userID, sessionID, c.Param("side"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SetCategory handles POST /api/v1/trips/:id/category.
func (h *TripHandler) SetCategory(c *gin.Context) {
	userID, sessionID, ok := h.callerAndSession(c)
	if !ok {
		return
	}

	var req application.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetCategory(c.Request.Context(), userID, sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Submit handles POST /api/v1/trips/:id/submit.
func (h *TripHandler) Submit(c *gin.Context) {
	userID, sessionID, ok := h.callerAndSession(c)
	if !ok {
		return
	}

	result, err := h.service.Submit(c.Request.Context(), userID, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Abandon handles POST /api/v1/trips/:id/abandon.
func (h *TripHandler) Abandon(c *gin.Context) {
	userID, sessionID, ok := h.callerAndSession(c)
	if !ok {
		return
	}

	result, err := h.service.Abandon(c.Request.Context(), userID, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func (h *TripHandler) callerAndSession(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session ID")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, sessionID, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
