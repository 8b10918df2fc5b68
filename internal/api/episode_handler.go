package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/service"
)

// EpisodeHandler handles nested episode endpoints
type EpisodeHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewEpisodeHandler creates a new EpisodeHandler
func NewEpisodeHandler(services *service.Services, log zerolog.Logger) *EpisodeHandler {
	return &EpisodeHandler{
		services: services,
		log:      log.With().Str("handler", "episode").Logger(),
	}
}

// Append handles POST /stories/episodes/:slug
func (h *EpisodeHandler) Append(c *gin.Context) {
	var in models.EpisodeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}

	result, err := h.services.Episode.Append(c.Request.Context(), c.Param("slug"), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List handles GET /stories/episodes/:slug?limit=&offset=
func (h *EpisodeHandler) List(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	list, err := h.services.Episode.List(c.Request.Context(), c.Param("slug"), page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Update handles PUT /stories/episodes/:slug/:index
func (h *EpisodeHandler) Update(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	var in models.EpisodeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}

	episode, err := h.services.Episode.UpdateField(c.Request.Context(), c.Param("slug"), index, &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, episode)
}

// Delete handles DELETE /stories/episodes/:slug/:index. The episode stays in
// place and is marked archived.
func (h *EpisodeHandler) Delete(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	episode, err := h.services.Episode.SoftDelete(c.Request.Context(), c.Param("slug"), index)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, episode)
}

// parseIndex rejects non-integer indexes. Negative integers pass through so
// the service reports them as out of range.
func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "index", "must be an integer")
		return 0, false
	}
	return index, true
}
