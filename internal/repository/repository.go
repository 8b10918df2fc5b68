package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/storage"
)

// StoryRepository defines the interface for story document operations
type StoryRepository interface {
	Create(ctx context.Context, story *models.NewStory) (*models.Story, error)
	Get(ctx context.Context, slug string) (*models.Story, error)
	Exists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, slug string, patch *models.StoryPatch) (*models.Story, error)
	Archive(ctx context.Context, slug string) (*models.ArchivedStory, error)
	List(ctx context.Context, page models.Page) (*models.StoryList, error)
	IncrementViews(ctx context.Context, slug string) (*models.Story, error)
	// Mutate runs fn on the current document under the story's lock and
	// persists the result with a refreshed updated_at. Nothing is written
	// when fn returns an error.
	Mutate(ctx context.Context, slug string, fn func(*models.Story) error) (*models.Story, error)
}

// Options tune the story repository
type Options struct {
	// Namespace is the key prefix of live stories, "stories" by default
	Namespace string
	// LockTimeout bounds the wait for a per-story lock; zero means no bound
	LockTimeout time.Duration
	// Now overrides the clock used for timestamps
	Now func() time.Time
}

// Repositories holds all repository interfaces
type Repositories struct {
	Story StoryRepository
}

// New creates all repositories over the given document store
func New(store storage.DocumentStore, locker storage.KeyLocker, opts Options, log zerolog.Logger) *Repositories {
	return &Repositories{
		Story: NewStoryRepo(store, locker, opts, log),
	}
}
