package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/metrics"
	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/repository"
	"github.com/story-cms-api/internal/validation"
)

// maxLineSize bounds a single NDJSON record
const maxLineSize = 1024 * 1024

// importService is the concrete implementation of ImportService
type importService struct {
	repo      repository.StoryRepository
	maxErrors int
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repo repository.StoryRepository, maxErrors int, m *metrics.Metrics, log zerolog.Logger) *importService {
	return &importService{
		repo:      repo,
		maxErrors: maxErrors,
		metrics:   m,
		log:       log.With().Str("service", "import").Logger(),
	}
}

// ImportNDJSON creates one story per non-empty line. Invalid lines are
// reported and skipped; the import itself only fails on unreadable input
// or a storage failure.
func (s *importService) ImportNDJSON(ctx context.Context, r io.Reader) (*models.ImportReport, error) {
	startTime := time.Now()
	report := &models.ImportReport{
		ImportID: uuid.New().String(),
		Slugs:    []string{},
	}
	log := s.log.With().Str("import_id", report.ImportID).Logger()
	log.Info().Msg("Starting import processing")

	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	validator := validation.NewValidator()
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			continue
		}

		report.TotalRecords++

		// Respect context cancellation for long-running imports
		if lineNum%1000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		var record models.StoryRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			s.fail(report, models.ValidationError{
				Line:    lineNum,
				Field:   "json",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if errs := validator.ValidateRecord(&record, lineNum); len(errs) > 0 {
			s.fail(report, errs...)
			continue
		}

		story, err := s.repo.Create(ctx, record.ToCreateRequest().ToNewStory())
		if err != nil {
			if errors.Is(err, models.ErrAlreadyExists) {
				s.fail(report, models.ValidationError{
					Line:    lineNum,
					Field:   "slug",
					Message: "story already exists",
					Value:   validation.RecordSlug(&record),
				})
				continue
			}
			if errors.Is(err, models.ErrValidation) {
				s.fail(report, models.ValidationError{Line: lineNum, Message: err.Error()})
				continue
			}
			log.Error().Err(err).Int("line", lineNum).Msg("Import aborted")
			return nil, err
		}

		validator.AddSlug(story.Slug)
		report.Created++
		report.Slugs = append(report.Slugs, story.Slug)
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line %d exceeds %d bytes", models.ErrValidation, lineNum+1, maxLineSize)
		}
		return nil, fmt.Errorf("%w: read import: %w", models.ErrIO, err)
	}

	duration := time.Since(startTime)
	report.DurationMs = duration.Milliseconds()
	s.metrics.RecordImport(report.Created, report.Failed)

	log.Info().
		Int("total", report.TotalRecords).
		Int("created", report.Created).
		Int("failed", report.Failed).
		Int64("duration_ms", report.DurationMs).
		Msg("Import completed")

	return report, nil
}

// fail counts one failed record and keeps at most maxErrors error entries
func (s *importService) fail(report *models.ImportReport, errs ...models.ValidationError) {
	report.Failed++
	for _, e := range errs {
		if s.maxErrors > 0 && len(report.Errors) >= s.maxErrors {
			return
		}
		report.Errors = append(report.Errors, e)
	}
}
