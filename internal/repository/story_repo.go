package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/slug"
	"github.com/story-cms-api/internal/storage"
)

const defaultNamespace = "stories"

// storyRepo is the concrete implementation of StoryRepository
type storyRepo struct {
	store       storage.DocumentStore
	locker      storage.KeyLocker
	namespace   string
	lockTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewStoryRepo creates a new story repository
func NewStoryRepo(store storage.DocumentStore, locker storage.KeyLocker, opts Options, log zerolog.Logger) StoryRepository {
	if locker == nil {
		locker = storage.NewMutexLocker()
	}
	namespace := strings.Trim(opts.Namespace, "/")
	if namespace == "" {
		namespace = defaultNamespace
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &storyRepo{
		store:       store,
		locker:      locker,
		namespace:   namespace,
		lockTimeout: opts.LockTimeout,
		now:         now,
		log:         log.With().Str("component", "story_repository").Logger(),
	}
}

// key maps a slug to its document key. Slugs that are not canonical can
// never have been written, so they resolve to NotFound without a lookup.
func (r *storyRepo) key(s string) (string, error) {
	if !slug.Valid(s) {
		return "", fmt.Errorf("%w: story %q", models.ErrNotFound, s)
	}
	return r.namespace + "/" + s + storage.DocumentExt, nil
}

func (r *storyRepo) timestamp() models.Timestamp {
	return models.NewTimestamp(r.now())
}

// lock acquires the per-story lock, bounded by the configured timeout
func (r *storyRepo) lock(ctx context.Context, key string) (func(), error) {
	if r.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.lockTimeout)
		defer cancel()
	}
	unlock, err := r.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", models.ErrIO, key, err)
	}
	return unlock, nil
}

// Create persists a new story; an existing key is never overwritten
func (r *storyRepo) Create(ctx context.Context, input *models.NewStory) (*models.Story, error) {
	s := input.Slug
	if s == "" {
		s = slug.Derive(input.Title)
		if s == "" {
			return nil, models.FieldErrors{"title": "must contain at least one letter or digit"}
		}
	} else if !slug.Valid(s) {
		return nil, models.FieldErrors{"slug": "must consist of lowercase letters, digits and single underscores"}
	}
	key := r.namespace + "/" + s + storage.DocumentExt

	unlock, err := r.lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := r.timestamp()
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	story := &models.Story{
		Title:     input.Title,
		Author:    input.Author,
		Slug:      s,
		CreatedAt: now,
		UpdatedAt: now,
		Content:   input.Content,
		Status:    models.StatusPublished,
		Tags:      tags,
		Views:     0,
	}
	story.Normalize()

	if err := r.store.Create(ctx, key, story); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: story %q", models.ErrAlreadyExists, s)
		}
		return nil, err
	}

	r.log.Debug().Str("slug", s).Msg("Story created")
	return story, nil
}

// Get reads a story without side effects
func (r *storyRepo) Get(ctx context.Context, s string) (*models.Story, error) {
	key, err := r.key(s)
	if err != nil {
		return nil, err
	}
	return r.read(ctx, key)
}

func (r *storyRepo) read(ctx context.Context, key string) (*models.Story, error) {
	var story models.Story
	if err := r.store.Read(ctx, key, &story); err != nil {
		return nil, err
	}
	story.Normalize()
	return &story, nil
}

// Exists checks if a live story is stored under slug
func (r *storyRepo) Exists(ctx context.Context, s string) (bool, error) {
	key, err := r.key(s)
	if err != nil {
		return false, nil
	}
	return r.store.Exists(ctx, key)
}

// Mutate performs a locked read-modify-write of one story
func (r *storyRepo) Mutate(ctx context.Context, s string, fn func(*models.Story) error) (*models.Story, error) {
	key, err := r.key(s)
	if err != nil {
		return nil, err
	}

	unlock, err := r.lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	story, err := r.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := fn(story); err != nil {
		return nil, err
	}
	story.UpdatedAt = r.timestamp()

	if err := r.store.Write(ctx, key, story); err != nil {
		return nil, err
	}
	return story, nil
}

// Update applies a sparse patch. A title change recomputes the slug field
// unless the patch sets one; the document key never changes.
func (r *storyRepo) Update(ctx context.Context, s string, patch *models.StoryPatch) (*models.Story, error) {
	return r.Mutate(ctx, s, func(story *models.Story) error {
		if patch.Title != nil {
			story.Title = *patch.Title
			if patch.Slug == nil {
				derived := slug.Derive(*patch.Title)
				if derived == "" {
					return models.FieldErrors{"title": "must contain at least one letter or digit"}
				}
				story.Slug = derived
			}
		}
		if patch.Slug != nil {
			story.Slug = *patch.Slug
		}
		if patch.Content != nil {
			story.Content = *patch.Content
		}
		if patch.Status != nil {
			story.Status = *patch.Status
		}
		if patch.Tags != nil {
			tags := *patch.Tags
			if tags == nil {
				tags = []string{}
			}
			story.Tags = tags
		}
		if patch.Views != nil {
			story.Views = *patch.Views
		}
		return nil
	})
}

// IncrementViews adds one view to a story
func (r *storyRepo) IncrementViews(ctx context.Context, s string) (*models.Story, error) {
	return r.Mutate(ctx, s, func(story *models.Story) error {
		story.Views++
		return nil
	})
}

// Archive moves a story out of the live namespace
func (r *storyRepo) Archive(ctx context.Context, s string) (*models.ArchivedStory, error) {
	key, err := r.key(s)
	if err != nil {
		return nil, err
	}

	unlock, err := r.lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	archiveKey, err := r.store.Archive(ctx, key)
	if err != nil {
		return nil, err
	}

	archivedAt := r.timestamp()
	if at, err := storage.ArchiveTime(archiveKey); err == nil {
		archivedAt = models.NewTimestamp(at)
	}

	r.log.Info().Str("slug", s).Str("archive_key", archiveKey).Msg("Story archived")
	return &models.ArchivedStory{
		Slug:       s,
		ArchiveID:  storage.ArchiveID(archiveKey),
		ArchivedAt: archivedAt,
	}, nil
}

// List returns a window over live stories, most recently modified first.
// Stories archived between listing and reading are skipped.
func (r *storyRepo) List(ctx context.Context, page models.Page) (*models.StoryList, error) {
	if page.Offset < 0 {
		return nil, models.FieldErrors{"offset": "must be no less than 0"}
	}
	if page.Limit != nil && *page.Limit < 0 {
		return nil, models.FieldErrors{"limit": "must be no less than 0"}
	}

	entries, err := r.store.List(ctx, r.namespace)
	if err != nil {
		return nil, err
	}
	sortEntries(entries)

	start, end := page.Bounds(len(entries))
	stories := make([]*models.Story, 0, end-start)
	for _, e := range entries[start:end] {
		story, err := r.read(ctx, e.Key)
		if errors.Is(err, models.ErrNotFound) {
			r.log.Debug().Str("key", e.Key).Msg("Story vanished while listing")
			continue
		}
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}

	return &models.StoryList{
		Stories: stories,
		Total:   len(entries),
		Limit:   page.Limit,
		Offset:  page.Offset,
	}, nil
}

// sortEntries orders by modification time descending, then key ascending
func sortEntries(entries []storage.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].ModTime.After(entries[j].ModTime)
		}
		return entries[i].Key < entries[j].Key
	})
}
