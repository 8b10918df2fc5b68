package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/story-cms-api/internal/metrics"
	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/repository"
)

// flushEvery is the number of records between flushes of a streaming writer
const flushEvery = 100

// flusher is implemented by http.ResponseWriter and bufio.Writer wrappers
type flusher interface {
	Flush()
}

// ExportContentType returns the MIME type of an export format
func ExportContentType(format string) string {
	switch format {
	case models.FormatNDJSON:
		return "application/x-ndjson"
	case models.FormatYAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}

// exportService is the concrete implementation of ExportService
type exportService struct {
	repo    repository.StoryRepository
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repo repository.StoryRepository, m *metrics.Metrics, log zerolog.Logger) *exportService {
	return &exportService{
		repo:    repo,
		metrics: m,
		log:     log.With().Str("service", "export").Logger(),
	}
}

// Export writes every live story to w in list order and returns the count
func (s *exportService) Export(ctx context.Context, w io.Writer, format string) (count int, err error) {
	defer func(start time.Time) { s.metrics.Observe("export", start, err) }(time.Now())

	if !models.ValidExportFormats[format] {
		return 0, models.FieldErrors{"format": fmt.Sprintf("unsupported format %q, must be one of: ndjson, json, yaml", format)}
	}

	s.log.Info().Str("format", format).Msg("Starting stories export")

	list, err := s.repo.List(ctx, models.Page{})
	if err != nil {
		return 0, err
	}

	switch format {
	case models.FormatNDJSON:
		err = writeNDJSON(w, list.Stories)
	case models.FormatJSON:
		err = writeJSON(w, list.Stories)
	case models.FormatYAML:
		err = writeYAML(w, list.Stories)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: write export: %v", models.ErrIO, err)
	}

	s.log.Info().Int("count", len(list.Stories)).Msg("Stories export completed")
	return len(list.Stories), nil
}

func writeNDJSON(w io.Writer, stories []*models.Story) error {
	f, _ := w.(flusher)
	for i, story := range stories {
		data, err := json.Marshal(story)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
		// Flush every 100 records for streaming
		if f != nil && (i+1)%flushEvery == 0 {
			f.Flush()
		}
	}
	return nil
}

func writeYAML(w io.Writer, stories []*models.Story) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(stories); err != nil {
		return err
	}
	return enc.Close()
}

func writeJSON(w io.Writer, stories []*models.Story) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i, story := range stories {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		data, err := json.Marshal(story)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]")
	return err
}
