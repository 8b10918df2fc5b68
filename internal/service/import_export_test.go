package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/story-cms-api/internal/models"
)

func TestImportService_ImportNDJSON(t *testing.T) {
	h := newTestHarness(t, false)
	ctx := context.Background()

	// an existing story makes line 6 a store-level duplicate
	_, _ = h.services.Story.Create(ctx, createReq("Existing"))

	input := strings.Join([]string{
		`{"title": "First", "author": "Ann", "content": "a", "tags": ["x"]}`,
		``,
		`{"title": "Second", "author": "Bob", "content": "b"}`,
		`{not json}`,
		`{"title": "first!", "author": "Cid", "content": "c"}`,
		`{"title": "Existing", "author": "Dee", "content": "d"}`,
		`{"title": "Missing author", "content": "e"}`,
		`{"title": "Custom", "author": "Eve", "content": "f", "slug": "custom_one"}`,
	}, "\n")

	report, err := h.services.Import.ImportNDJSON(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportNDJSON failed: %v", err)
	}

	if report.ImportID == "" {
		t.Error("Expected an import id")
	}
	if report.TotalRecords != 7 {
		t.Errorf("Expected 7 records, got %d", report.TotalRecords)
	}
	if report.Created != 3 {
		t.Errorf("Expected 3 created, got %d", report.Created)
	}
	if report.Failed != 4 {
		t.Errorf("Expected 4 failed, got %d", report.Failed)
	}

	wantSlugs := []string{"first", "second", "custom_one"}
	if len(report.Slugs) != len(wantSlugs) {
		t.Fatalf("Expected slugs %v, got %v", wantSlugs, report.Slugs)
	}
	for i, s := range wantSlugs {
		if report.Slugs[i] != s {
			t.Errorf("Slug %d: expected %s, got %s", i, s, report.Slugs[i])
		}
	}

	wantErrors := []struct {
		line  int
		field string
	}{
		{4, "json"},
		{5, "slug"},
		{6, "slug"},
		{7, "author"},
	}
	if len(report.Errors) != len(wantErrors) {
		t.Fatalf("Expected %d errors, got %v", len(wantErrors), report.Errors)
	}
	for i, want := range wantErrors {
		got := report.Errors[i]
		if got.Line != want.line || got.Field != want.field {
			t.Errorf("Error %d: expected line %d field %s, got line %d field %s", i, want.line, want.field, got.Line, got.Field)
		}
	}

	story, err := h.services.Story.Get(ctx, "first")
	if err != nil {
		t.Fatalf("Imported story not found: %v", err)
	}
	if story.Author != "Ann" || len(story.Tags) != 1 {
		t.Errorf("Unexpected imported story %+v", story)
	}
}

func TestImportService_MaxErrors(t *testing.T) {
	h := newTestHarness(t, false)

	var lines []string
	for i := 0; i < 150; i++ {
		lines = append(lines, `{"title": "?"}`)
	}

	report, err := h.services.Import.ImportNDJSON(context.Background(), strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("ImportNDJSON failed: %v", err)
	}
	if report.Failed != 150 {
		t.Errorf("Expected 150 failed, got %d", report.Failed)
	}
	if len(report.Errors) != 100 {
		t.Errorf("Expected errors to be capped at 100, got %d", len(report.Errors))
	}
}

func TestImportService_StorageFailureAborts(t *testing.T) {
	h := newTestHarness(t, false)
	h.store.CreateErr = fmt.Errorf("%w: read-only filesystem", models.ErrIO)

	_, err := h.services.Import.ImportNDJSON(context.Background(),
		strings.NewReader(`{"title": "A", "author": "B", "content": "C"}`))
	if !errors.Is(err, models.ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
}

func TestImportService_LineTooLong(t *testing.T) {
	h := newTestHarness(t, false)
	long := `{"title": "` + strings.Repeat("a", 2*1024*1024) + `"}`

	_, err := h.services.Import.ImportNDJSON(context.Background(), strings.NewReader(long))
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func seedStories(t *testing.T, h *testHarness, titles ...string) {
	t.Helper()
	for _, title := range titles {
		if _, err := h.services.Story.Create(context.Background(), createReq(title)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
}

func TestExportService_NDJSON(t *testing.T) {
	h := newTestHarness(t, false)
	seedStories(t, h, "One", "Two", "Three")

	var buf bytes.Buffer
	count, err := h.services.Export.Export(context.Background(), &buf, models.FormatNDJSON)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 stories, got %d", count)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	// newest first, like list
	var first models.Story
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Invalid NDJSON line: %v", err)
	}
	if first.Slug != "three" {
		t.Errorf("Expected three first, got %s", first.Slug)
	}
}

func TestExportService_JSON(t *testing.T) {
	h := newTestHarness(t, false)
	seedStories(t, h, "One", "Two")

	var buf bytes.Buffer
	if _, err := h.services.Export.Export(context.Background(), &buf, models.FormatJSON); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var stories []models.Story
	if err := json.Unmarshal(buf.Bytes(), &stories); err != nil {
		t.Fatalf("Invalid JSON array: %v", err)
	}
	if len(stories) != 2 {
		t.Errorf("Expected 2 stories, got %d", len(stories))
	}
}

func TestExportService_EmptyJSON(t *testing.T) {
	h := newTestHarness(t, false)

	var buf bytes.Buffer
	if _, err := h.services.Export.Export(context.Background(), &buf, models.FormatJSON); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if buf.String() != "[]" {
		t.Errorf("Expected [], got %s", buf.String())
	}
}

func TestExportService_YAML(t *testing.T) {
	h := newTestHarness(t, false)
	seedStories(t, h, "Yaml Story")

	var buf bytes.Buffer
	if _, err := h.services.Export.Export(context.Background(), &buf, models.FormatYAML); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var docs []map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &docs); err != nil {
		t.Fatalf("Invalid YAML: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 story, got %d", len(docs))
	}
	if docs[0]["slug"] != "yaml_story" {
		t.Errorf("Expected slug yaml_story, got %v", docs[0]["slug"])
	}
	if _, ok := docs[0]["comments"]; ok {
		t.Error("comments should not be exported to YAML")
	}
}

func TestExportService_UnsupportedFormat(t *testing.T) {
	h := newTestHarness(t, false)

	var buf bytes.Buffer
	_, err := h.services.Export.Export(context.Background(), &buf, "csv")
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}
