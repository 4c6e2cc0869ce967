// Package response provides the JSON envelope returned by all HTTP handlers.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dropme-cab/service-rides/internal/domain"
)

// Envelope is the uniform response body shape.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success writes a 200 response with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Accepted writes a 202 response for work that completes asynchronously.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Envelope{Success: true, Data: data})
}

// BadRequest writes a 400 response with the given message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Envelope{Success: false, Error: msg})
}

// Error maps a domain error to its HTTP status; unknown errors become 500.
func Error(c *gin.Context, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, Envelope{Success: false, Error: "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindInvalidState, domain.KindUnprocessable:
		status = http.StatusUnprocessableEntity
	case domain.KindForbidden:
		status = http.StatusForbidden
	}
	c.JSON(status, Envelope{Success: false, Error: err.Error()})
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}
