package mocks

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/service"
)

// MockStoryService is a mock implementation of StoryService
type MockStoryService struct {
	CreateFunc         func(ctx context.Context, req *models.CreateStoryRequest) (*models.Story, error)
	GetFunc            func(ctx context.Context, slug string) (*models.Story, error)
	ViewFunc           func(ctx context.Context, slug string) (*models.Story, error)
	UpdateFunc         func(ctx context.Context, slug string, patch *models.StoryPatch) (*models.Story, error)
	ArchiveFunc        func(ctx context.Context, slug string) (*models.ArchivedStory, error)
	ListFunc           func(ctx context.Context, page models.Page) (*models.StoryList, error)
	IncrementViewsFunc func(ctx context.Context, slug string) (*models.Story, error)
	ListPages          []models.Page
}

// Verify interface compliance
var _ service.StoryService = (*MockStoryService)(nil)

func NewMockStoryService() *MockStoryService {
	return &MockStoryService{
		ListPages: make([]models.Page, 0),
	}
}

func (m *MockStoryService) Create(ctx context.Context, req *models.CreateStoryRequest) (*models.Story, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return &models.Story{Title: *req.Title, Slug: "mock_story"}, nil
}

func (m *MockStoryService) Get(ctx context.Context, slug string) (*models.Story, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, slug)
	}
	return nil, fmt.Errorf("%w: story %q", models.ErrNotFound, slug)
}

func (m *MockStoryService) View(ctx context.Context, slug string) (*models.Story, error) {
	if m.ViewFunc != nil {
		return m.ViewFunc(ctx, slug)
	}
	return m.Get(ctx, slug)
}

func (m *MockStoryService) Update(ctx context.Context, slug string, patch *models.StoryPatch) (*models.Story, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, slug, patch)
	}
	return nil, fmt.Errorf("%w: story %q", models.ErrNotFound, slug)
}

func (m *MockStoryService) Archive(ctx context.Context, slug string) (*models.ArchivedStory, error) {
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, slug)
	}
	return nil, fmt.Errorf("%w: story %q", models.ErrNotFound, slug)
}

func (m *MockStoryService) List(ctx context.Context, page models.Page) (*models.StoryList, error) {
	m.ListPages = append(m.ListPages, page)
	if m.ListFunc != nil {
		return m.ListFunc(ctx, page)
	}
	return &models.StoryList{Stories: []*models.Story{}, Limit: page.Limit, Offset: page.Offset}, nil
}

func (m *MockStoryService) IncrementViews(ctx context.Context, slug string) (*models.Story, error) {
	if m.IncrementViewsFunc != nil {
		return m.IncrementViewsFunc(ctx, slug)
	}
	return nil, fmt.Errorf("%w: story %q", models.ErrNotFound, slug)
}

// MockEpisodeService is a mock implementation of EpisodeService
type MockEpisodeService struct {
	AppendFunc      func(ctx context.Context, slug string, in *models.EpisodeInput) (*models.AppendResult, error)
	UpdateFieldFunc func(ctx context.Context, slug string, index int, in *models.EpisodeInput) (*models.Episode, error)
	SoftDeleteFunc  func(ctx context.Context, slug string, index int) (*models.Episode, error)
	ListFunc        func(ctx context.Context, slug string, page models.Page) (*models.EpisodeList, error)
}

// Verify interface compliance
var _ service.EpisodeService = (*MockEpisodeService)(nil)

func NewMockEpisodeService() *MockEpisodeService {
	return &MockEpisodeService{}
}

func (m *MockEpisodeService) Append(ctx context.Context, slug string, in *models.EpisodeInput) (*models.AppendResult, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, slug, in)
	}
	return &models.AppendResult{EpisodeCount: 1}, nil
}

func (m *MockEpisodeService) UpdateField(ctx context.Context, slug string, index int, in *models.EpisodeInput) (*models.Episode, error) {
	if m.UpdateFieldFunc != nil {
		return m.UpdateFieldFunc(ctx, slug, index, in)
	}
	return nil, models.ErrIndexOutOfRange
}

func (m *MockEpisodeService) SoftDelete(ctx context.Context, slug string, index int) (*models.Episode, error) {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, slug, index)
	}
	return nil, models.ErrIndexOutOfRange
}

func (m *MockEpisodeService) List(ctx context.Context, slug string, page models.Page) (*models.EpisodeList, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, slug, page)
	}
	return &models.EpisodeList{Episodes: []models.Episode{}, Limit: page.Limit, Offset: page.Offset}, nil
}

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	ImportFunc func(ctx context.Context, r io.Reader) (*models.ImportReport, error)
	Payloads   []string
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{
		Payloads: make([]string, 0),
	}
}

func (m *MockImportService) ImportNDJSON(ctx context.Context, r io.Reader) (*models.ImportReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.Payloads = append(m.Payloads, string(data))
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx, strings.NewReader(string(data)))
	}
	return &models.ImportReport{ImportID: "test-import-id", Slugs: []string{}}, nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	ExportFunc func(ctx context.Context, w io.Writer, format string) (int, error)
	Formats    []string
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{
		Formats: make([]string, 0),
	}
}

func (m *MockExportService) Export(ctx context.Context, w io.Writer, format string) (int, error) {
	m.Formats = append(m.Formats, format)
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, w, format)
	}
	return 0, nil
}
