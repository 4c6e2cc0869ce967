package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dropme-cab/service-rides/internal/application"
	"github.com/dropme-cab/service-rides/internal/auth"
	"github.com/dropme-cab/service-rides/internal/middleware"
	"github.com/dropme-cab/service-rides/internal/response"
)

// AdminTripHandler handles admin HTTP requests for trip session oversight.
type AdminTripHandler struct {
	service *application.ResolutionService
}

// NewAdminTripHandler creates a new AdminTripHandler.
func NewAdminTripHandler(service *application.ResolutionService) *AdminTripHandler {
	return &AdminTripHandler{service: service}
}

// RegisterRoutes registers admin trip routes.
func (h *AdminTripHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/trips", h.ListSessions)
		admin.GET("/stats/trips", h.SessionStats)
	}
}

// ListSessions handles GET /api/v1/admin/trips.
func (h *AdminTripHandler) ListSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	sessions, total, err := h.service.ListAllSessions(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, sessions, total, page, limit)
}

// SessionStats handles GET /api/v1/admin/stats/trips.
func (h *AdminTripHandler) SessionStats(c *gin.Context) {
	stats, err := h.service.GetSessionStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
