package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/service"
)

// StoryHandler handles story endpoints
type StoryHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(services *service.Services, log zerolog.Logger) *StoryHandler {
	return &StoryHandler{
		services: services,
		log:      log.With().Str("handler", "story").Logger(),
	}
}

// Create handles POST /stories/create
func (h *StoryHandler) Create(c *gin.Context) {
	var req models.CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}

	story, err := h.services.Story.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Str("slug", story.Slug).Msg("Story created")
	c.JSON(http.StatusCreated, story)
}

// View handles GET /stories/view/:slug
func (h *StoryHandler) View(c *gin.Context) {
	story, err := h.services.Story.View(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// Update handles PUT /stories/update/:slug
func (h *StoryHandler) Update(c *gin.Context) {
	var patch models.StoryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}

	story, err := h.services.Story.Update(c.Request.Context(), c.Param("slug"), &patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// Delete handles DELETE /stories/delete/:slug. The story is archived, not removed.
func (h *StoryHandler) Delete(c *gin.Context) {
	archived, err := h.services.Story.Archive(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("slug", archived.Slug).
		Str("archive_id", archived.ArchiveID).
		Msg("Story archived")
	c.JSON(http.StatusOK, archived)
}

// List handles GET /stories/list?limit=&offset=
func (h *StoryHandler) List(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	list, err := h.services.Story.List(c.Request.Context(), page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
