package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/metrics"
	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/repository"
	"github.com/story-cms-api/internal/validation"
)

// episodeService is the concrete implementation of EpisodeService
type episodeService struct {
	repo    repository.StoryRepository
	now     func() time.Time
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// newEpisodeService creates a new EpisodeService
func newEpisodeService(repo repository.StoryRepository, now func() time.Time, m *metrics.Metrics, log zerolog.Logger) *episodeService {
	return &episodeService{
		repo:    repo,
		now:     now,
		metrics: m,
		log:     log.With().Str("service", "episode").Logger(),
	}
}

// Append adds an episode at the end and marks the story published
func (s *episodeService) Append(ctx context.Context, slug string, in *models.EpisodeInput) (result *models.AppendResult, err error) {
	defer func(start time.Time) { s.metrics.Observe("episode_append", start, err) }(time.Now())

	if err := validation.ValidateEpisodeAppend(in); err != nil {
		return nil, err
	}

	story, err := s.repo.Mutate(ctx, slug, func(story *models.Story) error {
		story.Episodes = append(story.Episodes, models.Episode{
			Title:     *in.Title,
			Content:   *in.Content,
			CreatedAt: models.NewTimestamp(s.now()),
		})
		story.PublishStatus = models.PublishStatusPublished
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("slug", slug).Int("episode_count", len(story.Episodes)).Msg("Episode appended")
	return &models.AppendResult{EpisodeCount: len(story.Episodes)}, nil
}

// UpdateField overwrites the provided fields of the episode at index
func (s *episodeService) UpdateField(ctx context.Context, slug string, index int, in *models.EpisodeInput) (episode *models.Episode, err error) {
	defer func(start time.Time) { s.metrics.Observe("episode_update", start, err) }(time.Now())

	if err := validation.ValidateEpisodeUpdate(in); err != nil {
		return nil, err
	}

	var updated models.Episode
	_, err = s.repo.Mutate(ctx, slug, func(story *models.Story) error {
		if err := checkIndex(story, index); err != nil {
			return err
		}
		ep := &story.Episodes[index]
		if in.Title != nil {
			ep.Title = *in.Title
		}
		if in.Content != nil {
			ep.Content = *in.Content
		}
		ts := models.NewTimestamp(s.now())
		ep.UpdatedAt = &ts
		updated = *ep
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SoftDelete flags the episode at index as archived; positions are unchanged
func (s *episodeService) SoftDelete(ctx context.Context, slug string, index int) (episode *models.Episode, err error) {
	defer func(start time.Time) { s.metrics.Observe("episode_delete", start, err) }(time.Now())

	var archived models.Episode
	_, err = s.repo.Mutate(ctx, slug, func(story *models.Story) error {
		if err := checkIndex(story, index); err != nil {
			return err
		}
		story.Episodes[index].PublishStatus = models.PublishStatusArchived
		archived = story.Episodes[index]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("slug", slug).Int("index", index).Msg("Episode archived")
	return &archived, nil
}

// List returns a positional window over all episodes, archived ones included
func (s *episodeService) List(ctx context.Context, slug string, page models.Page) (list *models.EpisodeList, err error) {
	defer func(start time.Time) { s.metrics.Observe("episode_list", start, err) }(time.Now())

	if page.Offset < 0 {
		return nil, models.FieldErrors{"offset": "must be no less than 0"}
	}
	if page.Limit != nil && *page.Limit < 0 {
		return nil, models.FieldErrors{"limit": "must be no less than 0"}
	}

	story, err := s.repo.Get(ctx, slug)
	if err != nil {
		return nil, err
	}

	start, end := page.Bounds(len(story.Episodes))
	episodes := make([]models.Episode, end-start)
	copy(episodes, story.Episodes[start:end])

	return &models.EpisodeList{
		Episodes: episodes,
		Total:    len(story.Episodes),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}, nil
}

func checkIndex(story *models.Story, index int) error {
	if index < 0 || index >= len(story.Episodes) {
		return fmt.Errorf("%w: episode %d of %d", models.ErrIndexOutOfRange, index, len(story.Episodes))
	}
	return nil
}
