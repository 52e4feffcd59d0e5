package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/scheduling-api/internal/models"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
)

// Envelope is the body shape for every JSON response. Exactly one of Data or
// Error is set.
type Envelope struct {
	Data       interface{}        `json:"data,omitempty"`
	Error      *appErrors.Error   `json:"error,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

func write(c *gin.Context, status int, body Envelope) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, body)
}

// JSON sends a success payload with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination) {
	write(c, status, Envelope{Data: data, Pagination: pagination})
}

// Created sends a 201 with the created resource.
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, Envelope{Data: data})
}

// Error sends the status carried by the domain error, coercing unknown
// errors to a 500.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	write(c, appErr.Status, Envelope{Error: appErr})
}

// NoContent sends an empty 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
