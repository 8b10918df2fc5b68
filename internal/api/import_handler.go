package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/config"
	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/service"
)

// ImportHandler handles import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// Import handles POST /stories/import
// Accepts a multipart upload in the "file" field or a raw NDJSON body.
// With ?format=csv the per-line errors are returned as CSV.
func (h *ImportHandler) Import(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		badRequest(c, "format", "must be one of: json, csv")
		return
	}

	maxSize := h.cfg.Import.MaxUploadSize
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)

	var body io.Reader
	file, header, err := c.Request.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > maxSize {
			h.tooLarge(c)
			return
		}
		body = file
		h.log.Info().
			Str("file", header.Filename).
			Int64("size_bytes", header.Size).
			Msg("Import upload received")
	case errors.Is(err, http.ErrNotMultipart):
		body = c.Request.Body
	case isTooLarge(err):
		h.tooLarge(c)
		return
	default:
		badRequest(c, "file", "multipart field \"file\" or an NDJSON body is required")
		return
	}

	report, err := h.services.Import.ImportNDJSON(c.Request.Context(), body)
	if err != nil {
		if isTooLarge(err) {
			h.tooLarge(c)
			return
		}
		respondError(c, h.log, err)
		return
	}

	if format == "csv" {
		writeErrorsCSV(c, report)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ImportHandler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("file too large, max size is %d MB", h.cfg.Import.MaxUploadSize/(1024*1024)),
	})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// writeErrorsCSV renders the import errors as line,field,message,value rows
func writeErrorsCSV(c *gin.Context, report *models.ImportReport) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=errors_%s.csv", report.ImportID))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	writer.Write([]string{"line", "field", "message", "value"})
	for _, e := range report.Errors {
		value := ""
		if e.Value != nil {
			value = fmt.Sprintf("%v", e.Value)
		}
		writer.Write([]string{strconv.Itoa(e.Line), e.Field, e.Message, value})
	}
	writer.Flush()
}
