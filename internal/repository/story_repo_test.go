package repository_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/repository"
	"github.com/story-cms-api/internal/storage"
)

// stepClock advances one second on every reading
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestRepo(t *testing.T) (repository.StoryRepository, *storage.MemoryStore) {
	t.Helper()
	clock := newStepClock()
	store := storage.NewMemoryStore(storage.WithClock(clock.Now))
	repo := repository.NewStoryRepo(store, storage.NewMutexLocker(), repository.Options{
		Namespace:   "stories",
		LockTimeout: time.Second,
		Now:         clock.Now,
	}, zerolog.Nop())
	return repo, store
}

func newStory(title string) *models.NewStory {
	return &models.NewStory{Title: title, Author: "Ann", Content: "Once upon a time", Tags: []string{"a"}}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func TestStoryRepo_Create(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	story, err := repo.Create(ctx, newStory("My Title"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if story.Slug != "my_title" {
		t.Errorf("Expected slug my_title, got %s", story.Slug)
	}
	if story.Status != models.StatusPublished {
		t.Errorf("Expected status published, got %s", story.Status)
	}
	if story.Views != 0 {
		t.Errorf("Expected 0 views, got %d", story.Views)
	}
	if !story.CreatedAt.Equal(story.UpdatedAt.Time) {
		t.Errorf("Expected equal timestamps, got %s and %s", story.CreatedAt, story.UpdatedAt)
	}
	if story.Episodes == nil || len(story.Episodes) != 0 {
		t.Errorf("Expected empty episodes, got %v", story.Episodes)
	}

	raw, ok := store.Raw("stories/my_title.json")
	if !ok {
		t.Fatal("Expected document under stories/my_title.json")
	}
	for _, field := range []string{`"comments": []`, `"episodes": []`, `"views": 0`} {
		if !bytes.Contains(raw, []byte(field)) {
			t.Errorf("Expected persisted document to contain %s", field)
		}
	}
}

func TestStoryRepo_CreateExplicitSlug(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	input := newStory("My Title")
	input.Slug = "custom_slug"
	story, err := repo.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if story.Slug != "custom_slug" {
		t.Errorf("Expected explicit slug to win, got %s", story.Slug)
	}

	input.Slug = "Not A Slug"
	if _, err := repo.Create(ctx, input); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for non-canonical slug, got %v", err)
	}
}

func TestStoryRepo_CreateUniqueness(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, newStory("Hello, World!")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	before, _ := store.Raw("stories/hello_world.json")

	_, err := repo.Create(ctx, newStory("hello world"))
	if !errors.Is(err, models.ErrAlreadyExists) {
		t.Fatalf("Expected ErrAlreadyExists, got %v", err)
	}

	after, _ := store.Raw("stories/hello_world.json")
	if !bytes.Equal(before, after) {
		t.Error("Duplicate create must not modify the existing document")
	}
}

func TestStoryRepo_CreateEmptySlug(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Create(context.Background(), newStory("!!!"))
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestStoryRepo_GetIsPure(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()
	_, _ = repo.Create(ctx, newStory("Quiet"))
	before, _ := store.Raw("stories/quiet.json")

	for i := 0; i < 3; i++ {
		if _, err := repo.Get(ctx, "quiet"); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}

	after, _ := store.Raw("stories/quiet.json")
	if !bytes.Equal(before, after) {
		t.Error("Get must not modify the document")
	}
}

func TestStoryRepo_GetNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, s := range []string{"missing", "../etc/passwd", "a/b", ""} {
		if _, err := repo.Get(ctx, s); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for %q, got %v", s, err)
		}
	}
}

func TestStoryRepo_GetLegacyDocument(t *testing.T) {
	repo, store := newTestRepo(t)
	store.PutRaw("stories/legacy.json", []byte(`{
    "title": "Legacy",
    "author": "Old",
    "slug": "legacy",
    "created_at": "2023-05-01T10:00:00+0000",
    "updated_at": "2023-05-01T10:00:00+0000",
    "content": "x",
    "status": "published",
    "tags": [],
    "views": 4,
    "comments": []
}`))

	story, err := repo.Get(context.Background(), "legacy")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if story.Episodes == nil {
		t.Error("Expected missing episodes to read as an empty sequence")
	}
	if story.CreatedAt.String() != "2023-05-01T10:00:00Z" {
		t.Errorf("Expected legacy timestamp to be parsed, got %s", story.CreatedAt)
	}
}

func TestStoryRepo_SparseUpdate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	created, _ := repo.Create(ctx, newStory("Sparse"))

	updated, err := repo.Update(ctx, "sparse", &models.StoryPatch{Content: strPtr("new body")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Content != "new body" {
		t.Errorf("Expected content to change, got %s", updated.Content)
	}
	if updated.Title != created.Title || updated.Author != created.Author || updated.Slug != created.Slug {
		t.Error("Fields outside the patch must not change")
	}
	if updated.Views != created.Views || updated.Status != created.Status {
		t.Error("Views and status must not change")
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "a" {
		t.Errorf("Expected tags to be kept, got %v", updated.Tags)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt.Time) {
		t.Error("created_at must not change")
	}
	if !updated.UpdatedAt.After(created.UpdatedAt.Time) {
		t.Errorf("Expected updated_at to advance, got %s then %s", created.UpdatedAt, updated.UpdatedAt)
	}
}

func TestStoryRepo_UpdateTitleKeepsKey(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()
	_, _ = repo.Create(ctx, newStory("Old Name"))

	updated, err := repo.Update(ctx, "old_name", &models.StoryPatch{Title: strPtr("New Name")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Slug != "new_name" {
		t.Errorf("Expected slug field new_name, got %s", updated.Slug)
	}
	if _, ok := store.Raw("stories/old_name.json"); !ok {
		t.Error("Document must stay under its original key")
	}
	if _, ok := store.Raw("stories/new_name.json"); ok {
		t.Error("Update must not rename the document")
	}

	updated, err = repo.Update(ctx, "old_name", &models.StoryPatch{Title: strPtr("Third"), Slug: strPtr("pinned")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Slug != "pinned" {
		t.Errorf("Expected explicit slug to win, got %s", updated.Slug)
	}
}

func TestStoryRepo_UpdateTagsReplaced(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	_, _ = repo.Create(ctx, newStory("Tagged"))

	tags := []string{"x", "y"}
	updated, err := repo.Update(ctx, "tagged", &models.StoryPatch{Tags: &tags, Views: intPtr(12)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(updated.Tags) != 2 || updated.Tags[0] != "x" {
		t.Errorf("Expected tags to be replaced wholesale, got %v", updated.Tags)
	}
	if updated.Views != 12 {
		t.Errorf("Expected 12 views, got %d", updated.Views)
	}
}

func TestStoryRepo_UpdateNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Update(context.Background(), "missing", &models.StoryPatch{Content: strPtr("x")})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStoryRepo_MutateErrorWritesNothing(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()
	_, _ = repo.Create(ctx, newStory("Stable"))
	before, _ := store.Raw("stories/stable.json")

	boom := errors.New("boom")
	_, err := repo.Mutate(ctx, "stable", func(s *models.Story) error {
		s.Content = "changed"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected callback error, got %v", err)
	}

	after, _ := store.Raw("stories/stable.json")
	if !bytes.Equal(before, after) {
		t.Error("Failed mutation must not write")
	}
}

func TestStoryRepo_Archive(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()
	_, _ = repo.Create(ctx, newStory("Gone Soon"))
	before, _ := store.Raw("stories/gone_soon.json")

	archived, err := repo.Archive(ctx, "gone_soon")
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if archived.Slug != "gone_soon" {
		t.Errorf("Expected slug gone_soon, got %s", archived.Slug)
	}
	stamp := archived.ArchivedAt.Format("20060102_150405")
	if archived.ArchiveID != "gone_soon_"+stamp {
		t.Errorf("Expected archive id to carry archived_at %s, got %s", stamp, archived.ArchiveID)
	}

	if _, err := repo.Get(ctx, "gone_soon"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected archived story to be unreachable, got %v", err)
	}

	after, ok := store.Raw("stories/archive/" + archived.ArchiveID + ".json")
	if !ok {
		t.Fatalf("Expected archived document %s", archived.ArchiveID)
	}
	if !bytes.Equal(before, after) {
		t.Error("Archived content must be byte-identical")
	}

	list, _ := repo.List(ctx, models.Page{})
	if list.Total != 0 {
		t.Errorf("Expected archived story to be excluded from list, got %d", list.Total)
	}

	if _, err := repo.Archive(ctx, "gone_soon"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second archive, got %v", err)
	}
}

func TestStoryRepo_ArchivedIsUnreachable(t *testing.T) {
	stores := map[string]func(t *testing.T) (storage.DocumentStore, storage.KeyLocker){
		"memory": func(t *testing.T) (storage.DocumentStore, storage.KeyLocker) {
			return storage.NewMemoryStore(), storage.NewMutexLocker()
		},
		"filesystem": func(t *testing.T) (storage.DocumentStore, storage.KeyLocker) {
			root := t.TempDir()
			store, err := storage.NewFilesystemStore(root, zerolog.Nop())
			if err != nil {
				t.Fatalf("NewFilesystemStore failed: %v", err)
			}
			locker, err := storage.NewFileLocker(root)
			if err != nil {
				t.Fatalf("NewFileLocker failed: %v", err)
			}
			return store, locker
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			store, locker := open(t)
			repo := repository.NewStoryRepo(store, locker, repository.Options{
				Namespace:   "stories",
				LockTimeout: time.Second,
			}, zerolog.Nop())
			ctx := context.Background()

			if _, err := repo.Create(ctx, newStory("Gone Soon")); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if _, err := repo.Archive(ctx, "gone_soon"); err != nil {
				t.Fatalf("Archive failed: %v", err)
			}

			called := false
			ops := map[string]func() error{
				"update": func() error {
					_, err := repo.Update(ctx, "gone_soon", &models.StoryPatch{Title: strPtr("Back")})
					return err
				},
				"increment views": func() error {
					_, err := repo.IncrementViews(ctx, "gone_soon")
					return err
				},
				"mutate": func() error {
					_, err := repo.Mutate(ctx, "gone_soon", func(*models.Story) error {
						called = true
						return nil
					})
					return err
				},
			}
			for op, fn := range ops {
				if err := fn(); !errors.Is(err, models.ErrNotFound) {
					t.Errorf("Expected ErrNotFound from %s, got %v", op, err)
				}
			}
			if called {
				t.Error("Mutate must not run on an archived story")
			}

			exists, err := store.Exists(ctx, "stories/gone_soon.json")
			if err != nil {
				t.Fatalf("Exists failed: %v", err)
			}
			if exists {
				t.Error("Expected live key to stay absent after archive")
			}
		})
	}
}

func TestStoryRepo_ArchiveThenRecreate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	_, _ = repo.Create(ctx, newStory("Phoenix"))
	_, _ = repo.Archive(ctx, "phoenix")

	if _, err := repo.Create(ctx, newStory("Phoenix")); err != nil {
		t.Errorf("Expected slug to be reusable after archive, got %v", err)
	}
}

func TestStoryRepo_ListOrderAndPagination(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := repo.Create(ctx, newStory(fmt.Sprintf("Story %d", i))); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	// touching story 2 moves it to the front
	_, _ = repo.Update(ctx, "story_2", &models.StoryPatch{Content: strPtr("edited")})

	all, err := repo.List(ctx, models.Page{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"story_2", "story_5", "story_4", "story_3", "story_1"}
	if len(all.Stories) != len(want) {
		t.Fatalf("Expected %d stories, got %d", len(want), len(all.Stories))
	}
	for i, s := range all.Stories {
		if s.Slug != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], s.Slug)
		}
	}

	tests := []struct {
		name      string
		page      models.Page
		wantSlugs []string
	}{
		{"first two", models.Page{Limit: intPtr(2)}, []string{"story_2", "story_5"}},
		{"middle", models.Page{Limit: intPtr(2), Offset: 2}, []string{"story_4", "story_3"}},
		{"tail", models.Page{Limit: intPtr(10), Offset: 4}, []string{"story_1"}},
		{"past end", models.Page{Offset: 9}, []string{}},
		{"zero limit", models.Page{Limit: intPtr(0)}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.page)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if page.Total != 5 {
				t.Errorf("Expected total 5, got %d", page.Total)
			}
			if len(page.Stories) != len(tt.wantSlugs) {
				t.Fatalf("Expected %d stories, got %d", len(tt.wantSlugs), len(page.Stories))
			}
			for i, s := range page.Stories {
				if s.Slug != tt.wantSlugs[i] {
					t.Errorf("Position %d: expected %s, got %s", i, tt.wantSlugs[i], s.Slug)
				}
			}
		})
	}
}

func TestStoryRepo_ListTotalInvariant(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, _ = repo.Create(ctx, newStory(fmt.Sprintf("Item %d", i)))
	}

	seen := 0
	for offset := 0; offset < 7; offset += 3 {
		page, err := repo.List(ctx, models.Page{Limit: intPtr(3), Offset: offset})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if page.Total != 7 {
			t.Errorf("Expected total 7 at offset %d, got %d", offset, page.Total)
		}
		seen += len(page.Stories)
	}
	if seen != 7 {
		t.Errorf("Expected pages to cover 7 stories, got %d", seen)
	}

	for _, offset := range []int{0, 1, 6, 7, math.MaxInt} {
		page, err := repo.List(ctx, models.Page{Limit: intPtr(math.MaxInt), Offset: offset})
		if err != nil {
			t.Fatalf("List(limit=MaxInt, offset=%d) failed: %v", offset, err)
		}
		want := 7 - offset
		if want < 0 {
			want = 0
		}
		if len(page.Stories) != want {
			t.Errorf("Expected %d stories at offset %d, got %d", want, offset, len(page.Stories))
		}
	}
}

func TestStoryRepo_ListRejectsNegativeWindow(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.List(ctx, models.Page{Offset: -1}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for negative offset, got %v", err)
	}
	if _, err := repo.List(ctx, models.Page{Limit: intPtr(-1)}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for negative limit, got %v", err)
	}
}

func TestStoryRepo_IncrementViewsConcurrent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	_, _ = repo.Create(ctx, newStory("Popular"))

	const workers = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.IncrementViews(ctx, "popular"); err != nil {
				t.Errorf("IncrementViews failed: %v", err)
			}
		}()
	}
	wg.Wait()

	story, _ := repo.Get(ctx, "popular")
	if story.Views != workers {
		t.Errorf("Expected %d views, got %d", workers, story.Views)
	}
}

func TestStoryRepo_ConcurrentCreateOneWinner(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	const workers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		dupes   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, newStory("Race"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, models.ErrAlreadyExists):
				dupes++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || dupes != workers-1 {
		t.Errorf("Expected 1 create and %d duplicates, got %d and %d", workers-1, created, dupes)
	}
}
