package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db      *gorm.DB
	service string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *gorm.DB, service string) *HealthHandler {
	return &HealthHandler{db: db, service: service}
}

// RegisterRoutes registers the health endpoints on the router.
func (h *HealthHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
}

// Liveness handles GET /healthz.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Readiness handles GET /readyz. It fails when the database is unreachable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": h.service})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}
