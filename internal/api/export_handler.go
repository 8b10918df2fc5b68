package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/service"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamExport handles GET /stories/export?format=...
// Streams every live story directly to the response
func (h *ExportHandler) StreamExport(c *gin.Context) {
	format := c.DefaultQuery("format", models.FormatNDJSON)
	if !models.ValidExportFormats[format] {
		badRequest(c, "format", "must be one of: ndjson, json, yaml")
		return
	}

	c.Header("Content-Type", service.ExportContentType(format))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=stories.%s", format))
	c.Status(http.StatusOK)

	count, err := h.services.Export.Export(c.Request.Context(), c.Writer, format)
	if err != nil {
		// Can't return error JSON after streaming has started
		h.log.Error().Err(err).Str("format", format).Msg("Export failed")
		return
	}

	h.log.Info().Str("format", format).Int("count", count).Msg("Export streamed")
}
