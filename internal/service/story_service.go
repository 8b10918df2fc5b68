package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/metrics"
	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/repository"
	"github.com/story-cms-api/internal/validation"
)

// storyService is the concrete implementation of StoryService
type storyService struct {
	repo       repository.StoryRepository
	countViews bool
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// newStoryService creates a new StoryService
func newStoryService(repo repository.StoryRepository, countViews bool, m *metrics.Metrics, log zerolog.Logger) *storyService {
	return &storyService{
		repo:       repo,
		countViews: countViews,
		metrics:    m,
		log:        log.With().Str("service", "story").Logger(),
	}
}

// Create validates the request and persists a new story
func (s *storyService) Create(ctx context.Context, req *models.CreateStoryRequest) (story *models.Story, err error) {
	defer s.observe("create", time.Now(), &err)

	if err := validation.ValidateCreate(req); err != nil {
		return nil, err
	}

	story, err = s.repo.Create(ctx, req.ToNewStory())
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("slug", story.Slug).
		Str("author", story.Author).
		Msg("Story created")
	return story, nil
}

// Get returns a story without side effects
func (s *storyService) Get(ctx context.Context, slug string) (story *models.Story, err error) {
	defer s.observe("get", time.Now(), &err)
	return s.repo.Get(ctx, slug)
}

// View returns a story, incrementing its views when view counting is on
func (s *storyService) View(ctx context.Context, slug string) (*models.Story, error) {
	if s.countViews {
		return s.IncrementViews(ctx, slug)
	}
	return s.Get(ctx, slug)
}

// Update validates and applies a sparse patch
func (s *storyService) Update(ctx context.Context, slug string, patch *models.StoryPatch) (story *models.Story, err error) {
	defer s.observe("update", time.Now(), &err)

	if err := validation.ValidatePatch(patch); err != nil {
		return nil, err
	}

	story, err = s.repo.Update(ctx, slug, patch)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("slug", slug).Msg("Story updated")
	return story, nil
}

// Archive moves a story out of the live namespace
func (s *storyService) Archive(ctx context.Context, slug string) (archived *models.ArchivedStory, err error) {
	defer s.observe("archive", time.Now(), &err)
	return s.repo.Archive(ctx, slug)
}

// List returns one page of live stories
func (s *storyService) List(ctx context.Context, page models.Page) (list *models.StoryList, err error) {
	defer s.observe("list", time.Now(), &err)
	return s.repo.List(ctx, page)
}

// IncrementViews adds one view to a story
func (s *storyService) IncrementViews(ctx context.Context, slug string) (story *models.Story, err error) {
	defer s.observe("increment_views", time.Now(), &err)
	return s.repo.IncrementViews(ctx, slug)
}

// observe records the outcome of an operation and logs unexpected failures
func (s *storyService) observe(op string, start time.Time, errp *error) {
	err := *errp
	s.metrics.Observe(op, start, err)
	if err != nil && isInternal(err) {
		s.log.Error().Err(err).Str("operation", op).Msg("Story operation failed")
	}
}

// isInternal reports errors that are not the caller's fault
func isInternal(err error) bool {
	return !errors.Is(err, models.ErrValidation) &&
		!errors.Is(err, models.ErrNotFound) &&
		!errors.Is(err, models.ErrAlreadyExists) &&
		!errors.Is(err, models.ErrIndexOutOfRange)
}
