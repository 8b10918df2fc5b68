package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/models"
)

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrIndexOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Messages are fixed per kind so that
// storage keys and paths never reach the client.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status := statusFor(err)
	body := gin.H{}

	switch status {
	case http.StatusBadRequest:
		body["error"] = "validation failed"
		var fields models.FieldErrors
		if errors.As(err, &fields) {
			body["fields"] = fields
		}
	case http.StatusNotFound:
		body["error"] = "story not found"
	case http.StatusConflict:
		body["error"] = "story already exists"
	case http.StatusUnprocessableEntity:
		body["error"] = "invalid episode index"
	default:
		body["error"] = "internal server error"
		log.Error().
			Err(err).
			Str("request_id", c.GetString(requestIDKey)).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	c.JSON(status, body)
}

// badRequest reports a malformed request that never reached a service
func badRequest(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "validation failed",
		"fields": models.FieldErrors{field: message},
	})
}

// parsePage reads the optional limit and offset query parameters
func parsePage(c *gin.Context) (models.Page, bool) {
	var page models.Page

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit", "must be an integer")
			return page, false
		}
		page.Limit = &limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "offset", "must be an integer")
			return page, false
		}
		page.Offset = offset
	}
	return page, true
}
