package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/config"
	"github.com/story-cms-api/internal/service"
	"github.com/story-cms-api/internal/storage"
)

const (
	serviceName     = "story-cms-api"
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	healthTimeout   = 3 * time.Second
)

// availableActions is returned with 404 responses
var availableActions = []string{
	"POST /stories/create",
	"GET /stories/view/:slug",
	"PUT /stories/update/:slug",
	"DELETE /stories/delete/:slug",
	"GET /stories/list",
	"POST /stories/episodes/:slug",
	"GET /stories/episodes/:slug",
	"PUT /stories/episodes/:slug/:index",
	"DELETE /stories/episodes/:slug/:index",
	"GET /stories/export",
	"POST /stories/import",
}

// NewRouter creates and configures the Gin router. health may be nil;
// a nil gatherer falls back to the default Prometheus registry.
func NewRouter(services *service.Services, cfg *config.Config, health storage.HealthChecker, gatherer prometheus.Gatherer, log zerolog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(requestIDMiddleware())
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))

	// Handlers
	storyHandler := NewStoryHandler(services, log)
	episodeHandler := NewEpisodeHandler(services, log)
	importHandler := NewImportHandler(services, cfg, log)
	exportHandler := NewExportHandler(services, log)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Health check
	router.GET("/health", healthCheck(health))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	stories := router.Group("/stories")
	{
		stories.POST("/create", storyHandler.Create)
		stories.GET("/view/:slug", storyHandler.View)
		stories.PUT("/update/:slug", storyHandler.Update)
		stories.DELETE("/delete/:slug", storyHandler.Delete)
		stories.GET("/list", storyHandler.List)

		// Episode endpoints
		stories.POST("/episodes/:slug", episodeHandler.Append)
		stories.GET("/episodes/:slug", episodeHandler.List)
		stories.PUT("/episodes/:slug/:index", episodeHandler.Update)
		stories.DELETE("/episodes/:slug/:index", episodeHandler.Delete)

		// Bulk endpoints
		stories.GET("/export", exportHandler.StreamExport)
		stories.POST("/import", importHandler.Import)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "unknown resource or action",
			"available_actions": availableActions,
		})
	})

	return router
}

// WithCORS wraps the router with CORS handling for the configured origins
func WithCORS(handler http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(handler)
}

// healthCheck returns the health status, probing storage when possible
func healthCheck(health storage.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		state := "healthy"
		storageState := "unknown"

		if health != nil {
			ctx, cancel := contextWithTimeout(c, healthTimeout)
			defer cancel()
			if err := health.HealthCheck(ctx); err != nil {
				status = http.StatusServiceUnavailable
				state = "unhealthy"
				storageState = "unavailable"
			} else {
				storageState = "ok"
			}
		}

		c.JSON(status, gin.H{
			"status":    state,
			"storage":   storageState,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   serviceName,
		})
	}
}

// requestIDMiddleware propagates or assigns a request id
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("request_id", c.GetString(requestIDKey)).
					Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(requestIDKey)).
			Msg("Request completed")
	}
}

// contextWithTimeout creates a context with timeout for handlers
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}
