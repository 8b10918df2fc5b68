package service

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/config"
	"github.com/story-cms-api/internal/metrics"
	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/repository"
)

// StoryService defines the interface for story operations
type StoryService interface {
	Create(ctx context.Context, req *models.CreateStoryRequest) (*models.Story, error)
	Get(ctx context.Context, slug string) (*models.Story, error)
	// View returns a story for display, counting the view when enabled
	View(ctx context.Context, slug string) (*models.Story, error)
	Update(ctx context.Context, slug string, patch *models.StoryPatch) (*models.Story, error)
	Archive(ctx context.Context, slug string) (*models.ArchivedStory, error)
	List(ctx context.Context, page models.Page) (*models.StoryList, error)
	IncrementViews(ctx context.Context, slug string) (*models.Story, error)
}

// EpisodeService defines the interface for nested episode operations.
// Episodes are addressed by position; soft deletion never shifts them.
type EpisodeService interface {
	Append(ctx context.Context, slug string, in *models.EpisodeInput) (*models.AppendResult, error)
	UpdateField(ctx context.Context, slug string, index int, in *models.EpisodeInput) (*models.Episode, error)
	SoftDelete(ctx context.Context, slug string, index int) (*models.Episode, error)
	List(ctx context.Context, slug string, page models.Page) (*models.EpisodeList, error)
}

// ImportService defines the interface for bulk story imports
type ImportService interface {
	ImportNDJSON(ctx context.Context, r io.Reader) (*models.ImportReport, error)
}

// ExportService defines the interface for bulk story exports
type ExportService interface {
	Export(ctx context.Context, w io.Writer, format string) (int, error)
}

// Services holds all service interfaces
type Services struct {
	Story   StoryService
	Episode EpisodeService
	Import  ImportService
	Export  ExportService
}

// Option configures the services
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *metrics.Metrics
}

// WithClock overrides the clock used for episode timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMetrics records operation counts and durations
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger, opts ...Option) *Services {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	storySvc := newStoryService(repos.Story, cfg.Stories.CountViews, o.metrics, log)
	return &Services{
		Story:   storySvc,
		Episode: newEpisodeService(repos.Story, o.now, o.metrics, log),
		Import:  newImportService(repos.Story, cfg.Import.MaxErrors, o.metrics, log),
		Export:  newExportService(repos.Story, o.metrics, log),
	}
}
